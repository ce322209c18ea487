package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/lunark-labs/drip/core"
)

// AccountStore persists accounts keyed by wallet address.
type AccountStore interface {
	GetAccount(ctx context.Context, address string) (*core.Account, error)
	CreateAccount(ctx context.Context, account *core.Account) error
	UpdateAccount(ctx context.Context, account *core.Account) error

	// DeleteAccount is the explicit erasure operation; dependent claim rows
	// are erased by the caller before the account itself.
	DeleteAccount(ctx context.Context, address string) error
}

// SessionStore persists session rows keyed by token ID.
type SessionStore interface {
	CreateSession(ctx context.Context, session *core.Session) error
	GetSession(ctx context.Context, id string) (*core.Session, error)
	UpdateSession(ctx context.Context, session *core.Session) error

	// InvalidateSessions flips every session of the address inactive.
	InvalidateSessions(ctx context.Context, address string) error
}

// ClaimStore persists claim transactions.
type ClaimStore interface {
	CreateClaim(ctx context.Context, claim *core.ClaimTransaction) error
	GetClaim(ctx context.Context, id string) (*core.ClaimTransaction, error)

	// PendingClaim returns the account's pending transaction, or
	// core.ErrNotFound when none exists.
	PendingClaim(ctx context.Context, address string) (*core.ClaimTransaction, error)

	UpdateClaim(ctx context.Context, claim *core.ClaimTransaction) error

	// ConfirmClaim commits the pending->confirmed flip together with the
	// account's cumulative counters in a single transaction.
	ConfirmClaim(ctx context.Context, claim *core.ClaimTransaction, account *core.Account) error

	DeleteClaims(ctx context.Context, address string) error
}

// PoolStore persists the reward pool configuration and statistics.
type PoolStore interface {
	GetPool(ctx context.Context) (*core.Pool, error)
	AddDistributed(ctx context.Context, amount decimal.Decimal) error
	IncrementParticipants(ctx context.Context) error
}
