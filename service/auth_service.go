package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lunark-labs/drip/core"
	"github.com/lunark-labs/drip/internal/solana"
	"github.com/lunark-labs/drip/ports"
)

// DefaultSessionTTL is how long a freshly issued or refreshed session lives.
const DefaultSessionTTL = 7 * 24 * time.Hour

// AuthService owns the wallet-signature authentication flow and the session
// lifecycle: challenge issuance, authenticate, verify, refresh, disconnect.
type AuthService struct {
	accounts  ports.AccountStore
	sessions  ports.SessionStore
	pool      ports.PoolStore
	tokenizer ports.Tokenizer
	events    ports.EventPublisher
	log       *zap.Logger

	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	accounts ports.AccountStore,
	sessions ports.SessionStore,
	pool ports.PoolStore,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts:   accounts,
		sessions:   sessions,
		pool:       pool,
		tokenizer:  tokenizer,
		events:     events,
		log:        log,
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// CreateChallenge issues a challenge message for the address. The challenge
// is stateless: nothing is stored, verification re-derives it from the
// signed message.
func (s *AuthService) CreateChallenge(address string) (*core.Challenge, error) {
	if address == "" {
		return nil, core.ErrMissingAddress
	}
	if !solana.ValidAddress(address) {
		return nil, core.ErrInvalidAddress
	}

	challenge, err := core.NewChallenge(address, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return challenge, nil
}

// Authenticate verifies a signed challenge and opens a session. The gates
// run in a fixed order and short-circuit on the first failure: address
// format, message format, embedded-address match, freshness, signature.
func (s *AuthService) Authenticate(ctx context.Context, address, message, signature string) (string, *core.Account, error) {
	publicKey, ok := solana.DecodeAddress(address)
	if !ok {
		return "", nil, core.ErrInvalidAddress
	}

	challenge, err := core.ParseChallengeMessage(message)
	if err != nil {
		return "", nil, err
	}

	if challenge.Address != address {
		return "", nil, core.ErrAddressMismatch
	}

	if err := challenge.Fresh(s.now()); err != nil {
		return "", nil, err
	}

	sig, ok := solana.DecodeSignature(signature)
	if !ok {
		s.log.Info("rejected malformed signature", zap.String("address", truncate(address)))
		return "", nil, core.ErrInvalidSignature
	}
	if !solana.VerifySignature([]byte(message), sig, publicKey) {
		s.log.Info("rejected invalid signature", zap.String("address", truncate(address)))
		return "", nil, core.ErrInvalidSignature
	}

	account, err := s.bootstrapAccount(ctx, address)
	if err != nil {
		return "", nil, err
	}

	token, session, err := s.createSession(ctx, address)
	if err != nil {
		return "", nil, err
	}

	if s.events != nil {
		if err := s.events.PublishLogin(ctx, address, session.ID); err != nil {
			s.log.Warn("failed to publish login event", zap.Error(err))
		}
	}

	return token, account, nil
}

// VerifySession resolves a bearer token to its account. The session row
// must exist, be active and not be past expiry.
func (s *AuthService) VerifySession(ctx context.Context, token string) (*core.Account, error) {
	session, err := s.activeSession(ctx, token)
	if err != nil {
		return nil, err
	}

	session.LastActivityAt = s.now()
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		s.log.Warn("failed to record session activity", zap.Error(err))
	}

	account, err := s.accounts.GetAccount(ctx, session.Address)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	return account, nil
}

// Refresh rotates the presented token's session: the old row goes inactive,
// a new row with extended expiry takes its place. No re-signing required.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, *core.Account, error) {
	session, err := s.activeSession(ctx, token)
	if err != nil {
		return "", nil, core.ErrRefreshFailed
	}

	session.Active = false
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return "", nil, core.ErrRefreshFailed
	}

	newToken, _, err := s.createSession(ctx, session.Address)
	if err != nil {
		return "", nil, core.ErrRefreshFailed
	}

	account, err := s.accounts.GetAccount(ctx, session.Address)
	if err != nil {
		return "", nil, core.ErrRefreshFailed
	}

	return newToken, account, nil
}

// Disconnect marks every session of the address inactive.
func (s *AuthService) Disconnect(ctx context.Context, address string) error {
	if err := s.sessions.InvalidateSessions(ctx, address); err != nil {
		return core.ErrDisconnectFailed
	}

	if s.events != nil {
		if err := s.events.PublishLogout(ctx, address); err != nil {
			s.log.Warn("failed to publish logout event", zap.Error(err))
		}
	}
	return nil
}

// UpdateProfile changes the mutable profile attributes.
func (s *AuthService) UpdateProfile(ctx context.Context, address, displayName, contact string) (*core.Account, error) {
	account, err := s.accounts.GetAccount(ctx, address)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}

	if displayName != "" {
		account.DisplayName = displayName
	}
	if contact != "" {
		account.Contact = contact
	}

	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	return account, nil
}

// EraseAccount removes the account and its dependent records. Claims go
// first so a failure never leaves orphaned rows behind a deleted account.
func (s *AuthService) EraseAccount(ctx context.Context, address string, claims ports.ClaimStore) error {
	if err := claims.DeleteClaims(ctx, address); err != nil {
		return fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	if err := s.sessions.InvalidateSessions(ctx, address); err != nil {
		return fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	if err := s.accounts.DeleteAccount(ctx, address); err != nil {
		return fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	return nil
}

func (s *AuthService) bootstrapAccount(ctx context.Context, address string) (*core.Account, error) {
	account, err := s.accounts.GetAccount(ctx, address)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}

	account = &core.Account{
		Address:     address,
		DisplayName: core.DefaultDisplayName(address),
		TotalEarned: decimal.Zero,
		CreatedAt:   s.now(),
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUserCreationFailed, err)
	}

	if s.pool != nil {
		if err := s.pool.IncrementParticipants(ctx); err != nil {
			s.log.Warn("failed to increment participant count", zap.Error(err))
		}
	}

	s.log.Info("account created", zap.String("address", truncate(address)))
	return account, nil
}

func (s *AuthService) createSession(ctx context.Context, address string) (string, *core.Session, error) {
	now := s.now()
	session := &core.Session{
		ID:             uuid.New().String(),
		Address:        address,
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.sessionTTL),
		LastActivityAt: now,
		Active:         true,
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("%w: %v", core.ErrSessionCreationFailed, err)
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", core.ErrSessionCreationFailed, err)
	}
	return token, session, nil
}

func (s *AuthService) activeSession(ctx context.Context, token string) (*core.Session, error) {
	id, _, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, core.ErrUnauthenticated
	}

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}

	if !session.Active || session.Expired(s.now()) {
		return nil, core.ErrUnauthenticated
	}
	return session, nil
}

// truncate shortens an address for logs: enough to correlate, not enough to
// be sensitive context.
func truncate(address string) string {
	if len(address) > 8 {
		return address[:8] + "..."
	}
	return address
}
