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
	"github.com/lunark-labs/drip/ports"
)

const (
	// PendingClaimTTL is how long an opened claim may wait for confirmation
	// before it lapses. Expiry is enforced lazily at the next read.
	PendingClaimTTL = 10 * time.Minute
)

// AmountTolerance is the maximum deviation accepted between the client's
// expected amount and the server-side recomputation: one cent at the fixed
// 2-decimal precision.
var AmountTolerance = decimal.RequireFromString("0.01")

// ClaimService owns the claim-transaction lifecycle. Open, Confirm and Fail
// serialize per account through the locker, which is what makes "at most one
// pending claim per account" and "claim committed exactly once" hold.
type ClaimService struct {
	accounts ports.AccountStore
	claims   ports.ClaimStore
	pool     ports.PoolStore
	locker   ports.Locker
	events   ports.EventPublisher
	log      *zap.Logger

	now func() time.Time
}

// NewClaimService creates a new claim service.
func NewClaimService(
	accounts ports.AccountStore,
	claims ports.ClaimStore,
	pool ports.PoolStore,
	locker ports.Locker,
	events ports.EventPublisher,
	log *zap.Logger,
) *ClaimService {
	return &ClaimService{
		accounts: accounts,
		claims:   claims,
		pool:     pool,
		locker:   locker,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *ClaimService) WithClock(now func() time.Time) *ClaimService {
	s.now = now
	return s
}

// Available computes the claimable amount for the account right now. The
// same pure function backs Open, so preview and claim can never drift.
func (s *ClaimService) Available(ctx context.Context, address string) (core.AccrualResult, error) {
	account, pool, err := s.accountAndPool(ctx, address)
	if err != nil {
		return core.AccrualResult{}, err
	}

	return core.Available(account.AccrualBaseline(), s.now(), pool.RatePerHour, pool.CapPerWindow, pool.MinIntervalHours), nil
}

// Open starts a claim: it recomputes the available amount server-side under
// the account lock, checks the client's expectation against it, and persists
// a pending transaction with a fixed expiry.
func (s *ClaimService) Open(ctx context.Context, address string, expectedAmount decimal.Decimal) (*core.ClaimTransaction, error) {
	release, err := s.locker.Acquire(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	defer release()

	account, pool, err := s.accountAndPool(ctx, address)
	if err != nil {
		return nil, err
	}
	if !pool.Active {
		return nil, core.ErrPoolInactive
	}

	now := s.now()
	available := core.Available(account.AccrualBaseline(), now, pool.RatePerHour, pool.CapPerWindow, pool.MinIntervalHours)

	if expectedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, core.ErrInvalidAmount
	}
	if !available.CanClaim {
		return nil, core.ErrClaimTooSoon
	}
	if expectedAmount.Sub(available.Amount).Abs().GreaterThan(AmountTolerance) {
		s.log.Info("claim amount mismatch",
			zap.String("address", truncate(address)),
			zap.String("expected", expectedAmount.StringFixed(2)),
			zap.String("computed", available.Amount.StringFixed(2)))
		return nil, core.ErrAmountMismatch
	}

	if err := s.closeLapsedPending(ctx, address, now); err != nil {
		return nil, err
	}

	claim := &core.ClaimTransaction{
		ID:        uuid.New().String(),
		Address:   address,
		Amount:    available.Amount,
		Status:    core.ClaimStatusPending,
		EarnedAt:  now,
		ExpiresAt: now.Add(PendingClaimTTL),
	}
	if err := s.claims.CreateClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}

	return claim, nil
}

// Confirm settles a pending claim with its settlement reference. A pending
// claim past its expiry transitions to expired instead; the status check is
// a side-effecting read. Terminal transactions answer as not found so
// retries learn nothing.
func (s *ClaimService) Confirm(ctx context.Context, id, address, settlementRef string) (*core.ClaimTransaction, error) {
	release, err := s.locker.Acquire(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	defer release()

	claim, err := s.ownedPending(ctx, id, address)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.After(claim.ExpiresAt) {
		if err := s.expire(ctx, claim); err != nil {
			return nil, err
		}
		return nil, core.ErrTransactionExpired
	}

	account, err := s.accounts.GetAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}

	claim.Status = core.ClaimStatusConfirmed
	claim.ClaimedAt = now
	claim.SettlementRef = settlementRef

	account.TotalEarned = account.TotalEarned.Add(claim.Amount)
	account.TotalClaims++
	account.LastClaimAt = now

	if err := s.claims.ConfirmClaim(ctx, claim, account); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}

	if err := s.pool.AddDistributed(ctx, claim.Amount); err != nil {
		s.log.Warn("failed to update pool distribution total", zap.Error(err))
	}

	if s.events != nil {
		if err := s.events.PublishClaimConfirmed(ctx, claim); err != nil {
			s.log.Warn("failed to publish claim event", zap.Error(err))
		}
	}

	s.log.Info("claim confirmed",
		zap.String("transaction", claim.ID),
		zap.String("amount", claim.Amount.StringFixed(2)))
	return claim, nil
}

// Fail marks a pending claim failed after settlement was reported
// unsuccessful. Like Confirm, an already-lapsed claim expires instead.
func (s *ClaimService) Fail(ctx context.Context, id, address, reason string) (*core.ClaimTransaction, error) {
	release, err := s.locker.Acquire(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	defer release()

	claim, err := s.ownedPending(ctx, id, address)
	if err != nil {
		return nil, err
	}

	if s.now().After(claim.ExpiresAt) {
		if err := s.expire(ctx, claim); err != nil {
			return nil, err
		}
		return nil, core.ErrTransactionExpired
	}

	claim.Status = core.ClaimStatusFailed
	claim.FailureReason = reason
	if err := s.claims.UpdateClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	return claim, nil
}

// Pool returns the pool configuration and statistics.
func (s *ClaimService) Pool(ctx context.Context) (*core.Pool, error) {
	pool, err := s.pool.GetPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	return pool, nil
}

func (s *ClaimService) accountAndPool(ctx context.Context, address string) (*core.Account, *core.Pool, error) {
	account, err := s.accounts.GetAccount(ctx, address)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, core.ErrUnauthenticated
		}
		return nil, nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}

	pool, err := s.pool.GetPool(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	return account, pool, nil
}

// ownedPending loads a claim that must belong to the caller and still be
// pending. Foreign and terminal transactions are indistinguishable from
// missing ones.
func (s *ClaimService) ownedPending(ctx context.Context, id, address string) (*core.ClaimTransaction, error) {
	claim, err := s.claims.GetClaim(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	if claim.Address != address || claim.Status.Terminal() {
		return nil, core.ErrTransactionNotFound
	}
	return claim, nil
}

// closeLapsedPending expires a stale pending claim, or reports the conflict
// if one is still live.
func (s *ClaimService) closeLapsedPending(ctx context.Context, address string, now time.Time) error {
	pending, err := s.claims.PendingClaim(ctx, address)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}

	if now.After(pending.ExpiresAt) {
		return s.expire(ctx, pending)
	}
	return core.ErrClaimInProgress
}

func (s *ClaimService) expire(ctx context.Context, claim *core.ClaimTransaction) error {
	claim.Status = core.ClaimStatusExpired
	if err := s.claims.UpdateClaim(ctx, claim); err != nil {
		return fmt.Errorf("%w: %v", core.ErrDatabase, err)
	}
	s.log.Info("claim expired", zap.String("transaction", claim.ID))
	return nil
}
