package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a wallet-addressed participant of the reward pool.
// The address is the immutable identity; everything else is mutable state.
type Account struct {
	Address     string          // base58-encoded ed25519 public key
	DisplayName string
	Contact     string
	TotalEarned decimal.Decimal
	TotalClaims int64
	LastClaimAt time.Time // zero until the first confirmed claim
	CreatedAt   time.Time
}

// AccrualBaseline is the instant accrual is measured from: the last
// confirmed claim, or registration time for accounts that never claimed.
func (a *Account) AccrualBaseline() time.Time {
	if a.LastClaimAt.IsZero() {
		return a.CreatedAt
	}
	return a.LastClaimAt
}

// DefaultDisplayName derives the bootstrap display name for a new account
// from a prefix of its address.
func DefaultDisplayName(address string) string {
	if len(address) > 8 {
		address = address[:8]
	}
	return "user_" + address
}

// Session is a server-side session row. The client holds an opaque token
// whose JTI resolves to this row; refresh rotates the ID and extends expiry.
type Session struct {
	ID             string
	Address        string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	LastActivityAt time.Time
	Active         bool
}

// Expired reports whether the session is past its expiry at the given
// instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ClaimStatus is the lifecycle state of a claim transaction.
type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusConfirmed ClaimStatus = "confirmed"
	ClaimStatusFailed    ClaimStatus = "failed"
	ClaimStatusExpired   ClaimStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimStatusConfirmed || s == ClaimStatusFailed || s == ClaimStatusExpired
}

// ClaimTransaction records one claim attempt. Amount is immutable once the
// transaction is created; status transitions are monotone.
type ClaimTransaction struct {
	ID            string
	Address       string
	Amount        decimal.Decimal
	Status        ClaimStatus
	EarnedAt      time.Time
	ExpiresAt     time.Time
	ClaimedAt     time.Time // set only on confirmation
	SettlementRef string    // set only on confirmation
	FailureReason string    // set only on failure
}

// Pool is the reward pool configuration plus running statistics, mirroring
// the on-chain pool account.
type Pool struct {
	RatePerHour      decimal.Decimal
	MinIntervalHours int64
	CapPerWindow     decimal.Decimal
	Active           bool
	TotalDistributed decimal.Decimal
	ParticipantCount int64
	CreatedAt        time.Time
}

// DefaultPool returns the bootstrap pool configuration: 0.1 tokens per hour,
// claimable at most once per hour, capped at a 24-hour window's worth.
func DefaultPool(now time.Time) *Pool {
	return &Pool{
		RatePerHour:      decimal.RequireFromString("0.1"),
		MinIntervalHours: 1,
		CapPerWindow:     decimal.RequireFromString("2.4"),
		Active:           true,
		TotalDistributed: decimal.Zero,
		CreatedAt:        now,
	}
}
