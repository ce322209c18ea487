package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lunark-labs/drip/core"
)

// MemoryStore is an in-memory implementation of every store port. It is
// intended for tests; values are copied on the way in and out so callers
// never alias store state.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]core.Account
	sessions map[string]core.Session
	claims   map[string]core.ClaimTransaction
	pool     *core.Pool
}

// NewMemoryStore creates an empty in-memory store with the default pool.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]core.Account),
		sessions: make(map[string]core.Session),
		claims:   make(map[string]core.ClaimTransaction),
		pool:     core.DefaultPool(time.Now()),
	}
}

func (s *MemoryStore) GetAccount(ctx context.Context, address string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[address]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &account, nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, account *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.Address] = *account
	return nil
}

func (s *MemoryStore) UpdateAccount(ctx context.Context, account *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.Address]; !ok {
		return core.ErrNotFound
	}
	s.accounts[account.Address] = *account
	return nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.accounts, address)
	for id, sess := range s.sessions {
		if sess.Address == address {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &session, nil
}

func (s *MemoryStore) UpdateSession(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return core.ErrNotFound
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryStore) InvalidateSessions(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.Address == address {
			sess.Active = false
			s.sessions[id] = sess
		}
	}
	return nil
}

func (s *MemoryStore) CreateClaim(ctx context.Context, claim *core.ClaimTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claims[claim.ID] = *claim
	return nil
}

func (s *MemoryStore) GetClaim(ctx context.Context, id string) (*core.ClaimTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claim, ok := s.claims[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &claim, nil
}

func (s *MemoryStore) PendingClaim(ctx context.Context, address string) (*core.ClaimTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, claim := range s.claims {
		if claim.Address == address && claim.Status == core.ClaimStatusPending {
			c := claim
			return &c, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *MemoryStore) UpdateClaim(ctx context.Context, claim *core.ClaimTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[claim.ID]; !ok {
		return core.ErrNotFound
	}
	s.claims[claim.ID] = *claim
	return nil
}

func (s *MemoryStore) ConfirmClaim(ctx context.Context, claim *core.ClaimTransaction, account *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[claim.ID]; !ok {
		return core.ErrNotFound
	}
	if _, ok := s.accounts[account.Address]; !ok {
		return core.ErrNotFound
	}
	s.claims[claim.ID] = *claim
	s.accounts[account.Address] = *account
	return nil
}

func (s *MemoryStore) DeleteClaims(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, claim := range s.claims {
		if claim.Address == address {
			delete(s.claims, id)
		}
	}
	return nil
}

func (s *MemoryStore) GetPool(ctx context.Context) (*core.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool := *s.pool
	return &pool, nil
}

func (s *MemoryStore) SetPool(pool *core.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *pool
	s.pool = &p
}

func (s *MemoryStore) AddDistributed(ctx context.Context, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pool.TotalDistributed = s.pool.TotalDistributed.Add(amount)
	return nil
}

func (s *MemoryStore) IncrementParticipants(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pool.ParticipantCount++
	return nil
}
