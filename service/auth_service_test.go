package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunark-labs/drip/adapters/store"
	"github.com/lunark-labs/drip/adapters/tokenizer"
	"github.com/lunark-labs/drip/core"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type wallet struct {
	address string
	priv    ed25519.PrivateKey
}

func newWallet(t *testing.T) *wallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &wallet{address: base58.Encode(pub), priv: priv}
}

func (w *wallet) sign(message string) string {
	return base58.Encode(ed25519.Sign(w.priv, []byte(message)))
}

func newTestAuth(t *testing.T) (*AuthService, *store.MemoryStore, *testClock) {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	clock := newTestClock()
	svc := NewAuthService(mem, mem, mem, tokenizer.NewJWTTokenizer(signKey), nil, zap.NewNop()).
		WithClock(clock.Now)
	return svc, mem, clock
}

func authenticate(t *testing.T, svc *AuthService, w *wallet) string {
	t.Helper()

	challenge, err := svc.CreateChallenge(w.address)
	require.NoError(t, err)

	message := challenge.Message()
	token, account, err := svc.Authenticate(context.Background(), w.address, message, w.sign(message))
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, w.address, account.Address)
	return token
}

func TestCreateChallengeValidation(t *testing.T) {
	svc, _, _ := newTestAuth(t)

	_, err := svc.CreateChallenge("")
	assert.ErrorIs(t, err, core.ErrMissingAddress)

	_, err = svc.CreateChallenge("not-a-wallet")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestAuthenticateBootstrapsAccount(t *testing.T) {
	svc, mem, _ := newTestAuth(t)
	w := newWallet(t)

	token := authenticate(t, svc, w)

	account, err := svc.VerifySession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, w.address, account.Address)
	assert.Equal(t, core.DefaultDisplayName(w.address), account.DisplayName)
	assert.True(t, account.TotalEarned.IsZero())
	assert.True(t, account.LastClaimAt.IsZero())

	pool, err := mem.GetPool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), pool.ParticipantCount)
}

func TestAuthenticateExistingAccountKeepsProfile(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	w := newWallet(t)

	authenticate(t, svc, w)
	_, err := svc.UpdateProfile(context.Background(), w.address, "alice", "alice@example.com")
	require.NoError(t, err)

	token := authenticate(t, svc, w)
	account, err := svc.VerifySession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.DisplayName)
	assert.Equal(t, "alice@example.com", account.Contact)
}

func TestAuthenticateGateOrder(t *testing.T) {
	svc, _, clock := newTestAuth(t)
	w := newWallet(t)

	challenge, err := svc.CreateChallenge(w.address)
	require.NoError(t, err)
	message := challenge.Message()

	t.Run("invalid address", func(t *testing.T) {
		_, _, err := svc.Authenticate(context.Background(), "bogus", message, w.sign(message))
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
	})

	t.Run("malformed message", func(t *testing.T) {
		_, _, err := svc.Authenticate(context.Background(), w.address, "please let me in", w.sign("please let me in"))
		assert.ErrorIs(t, err, core.ErrInvalidMessageFormat)
	})

	t.Run("address mismatch", func(t *testing.T) {
		other := newWallet(t)
		_, _, err := svc.Authenticate(context.Background(), other.address, message, other.sign(message))
		assert.ErrorIs(t, err, core.ErrAddressMismatch)
	})

	t.Run("stale challenge", func(t *testing.T) {
		stale := &core.Challenge{Address: w.address, Nonce: challenge.Nonce, IssuedAt: clock.Now().Add(-6 * time.Minute)}
		staleMsg := stale.Message()
		_, _, err := svc.Authenticate(context.Background(), w.address, staleMsg, w.sign(staleMsg))
		assert.ErrorIs(t, err, core.ErrInvalidTimestamp)
	})

	t.Run("future challenge", func(t *testing.T) {
		future := &core.Challenge{Address: w.address, Nonce: challenge.Nonce, IssuedAt: clock.Now().Add(2 * time.Minute)}
		futureMsg := future.Message()
		_, _, err := svc.Authenticate(context.Background(), w.address, futureMsg, w.sign(futureMsg))
		assert.ErrorIs(t, err, core.ErrInvalidTimestamp)
	})

	t.Run("malformed signature", func(t *testing.T) {
		_, _, err := svc.Authenticate(context.Background(), w.address, message, "zzz")
		assert.ErrorIs(t, err, core.ErrInvalidSignature)
	})

	t.Run("wrong key signature", func(t *testing.T) {
		other := newWallet(t)
		_, _, err := svc.Authenticate(context.Background(), w.address, message, other.sign(message))
		assert.ErrorIs(t, err, core.ErrInvalidSignature)
	})
}

func TestVerifySessionRejectsGarbageToken(t *testing.T) {
	svc, _, _ := newTestAuth(t)

	_, err := svc.VerifySession(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestVerifySessionExpiry(t *testing.T) {
	svc, _, clock := newTestAuth(t)
	w := newWallet(t)
	token := authenticate(t, svc, w)

	clock.Advance(DefaultSessionTTL + time.Hour)

	_, err := svc.VerifySession(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	w := newWallet(t)
	oldToken := authenticate(t, svc, w)

	newToken, account, err := svc.Refresh(context.Background(), oldToken)
	require.NoError(t, err)
	require.NotEmpty(t, newToken)
	assert.NotEqual(t, oldToken, newToken)
	assert.Equal(t, w.address, account.Address)

	_, err = svc.VerifySession(context.Background(), newToken)
	assert.NoError(t, err)

	// The rotated-out session is dead for both verification and refresh.
	_, err = svc.VerifySession(context.Background(), oldToken)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, _, err = svc.Refresh(context.Background(), oldToken)
	assert.ErrorIs(t, err, core.ErrRefreshFailed)
}

func TestDisconnectKillsAllSessions(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	w := newWallet(t)

	first := authenticate(t, svc, w)
	second := authenticate(t, svc, w)

	require.NoError(t, svc.Disconnect(context.Background(), w.address))

	_, err := svc.VerifySession(context.Background(), first)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	_, err = svc.VerifySession(context.Background(), second)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestUpdateProfilePartial(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	w := newWallet(t)
	authenticate(t, svc, w)

	account, err := svc.UpdateProfile(context.Background(), w.address, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", account.DisplayName)
	assert.Empty(t, account.Contact)

	account, err = svc.UpdateProfile(context.Background(), w.address, "", "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob", account.DisplayName)
	assert.Equal(t, "bob@example.com", account.Contact)
}

func TestEraseAccount(t *testing.T) {
	svc, mem, _ := newTestAuth(t)
	w := newWallet(t)
	token := authenticate(t, svc, w)

	require.NoError(t, svc.EraseAccount(context.Background(), w.address, mem))

	_, err := svc.VerifySession(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = mem.GetAccount(context.Background(), w.address)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
