package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/lunark-labs/drip/core"
)

type accountRow struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	Address     string          `bun:"address,pk"`
	DisplayName string          `bun:"display_name,notnull"`
	Contact     string          `bun:"contact"`
	TotalEarned decimal.Decimal `bun:"total_earned,notnull,type:decimal(20,2)"`
	TotalClaims int64           `bun:"total_claims,notnull,default:0"`
	LastClaimAt time.Time       `bun:"last_claim_at,nullzero"`
	CreatedAt   time.Time       `bun:"created_at,notnull"`
}

type claimRow struct {
	bun.BaseModel `bun:"table:claim_transactions,alias:ct"`

	ID            string          `bun:"id,pk"`
	Address       string          `bun:"address,notnull"`
	Amount        decimal.Decimal `bun:"amount,notnull,type:decimal(20,2)"`
	Status        string          `bun:"status,notnull"`
	EarnedAt      time.Time       `bun:"earned_at,notnull"`
	ExpiresAt     time.Time       `bun:"expires_at,notnull"`
	ClaimedAt     time.Time       `bun:"claimed_at,nullzero"`
	SettlementRef string          `bun:"settlement_ref"`
	FailureReason string          `bun:"failure_reason"`
}

type poolRow struct {
	bun.BaseModel `bun:"table:reward_pool,alias:rp"`

	ID               int64           `bun:"id,pk"`
	RatePerHour      decimal.Decimal `bun:"rate_per_hour,notnull,type:decimal(20,2)"`
	MinIntervalHours int64           `bun:"min_interval_hours,notnull"`
	CapPerWindow     decimal.Decimal `bun:"cap_per_window,notnull,type:decimal(20,2)"`
	Active           bool            `bun:"active,notnull"`
	TotalDistributed decimal.Decimal `bun:"total_distributed,notnull,type:decimal(20,2)"`
	ParticipantCount int64           `bun:"participant_count,notnull,default:0"`
	CreatedAt        time.Time       `bun:"created_at,notnull"`
}

// PostgresStore persists accounts, claim transactions and the pool row in
// Postgres via bun. Sessions live in Redis; see RedisSessionStore.
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables if absent and seeds the default pool row.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	models := []interface{}{(*accountRow)(nil), (*claimRow)(nil), (*poolRow)(nil)}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if _, err := s.db.NewCreateIndex().Model((*claimRow)(nil)).
		Index("index_claim_transactions_address_status").IfNotExists().
		Column("address", "status").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create claim index: %w", err)
	}

	count, err := s.db.NewSelect().Model((*poolRow)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pool rows: %w", err)
	}
	if count == 0 {
		row := toPoolRow(core.DefaultPool(time.Now()))
		if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("failed to seed pool: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, address string) (*core.Account, error) {
	var row accountRow
	err := s.db.NewSelect().Model(&row).Where("address = ?", address).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return row.toAccount(), nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account *core.Account) error {
	if _, err := s.db.NewInsert().Model(toAccountRow(account)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateAccount(ctx context.Context, account *core.Account) error {
	res, err := s.db.NewUpdate().Model(toAccountRow(account)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAccount(ctx context.Context, address string) error {
	_, err := s.db.NewDelete().Model((*accountRow)(nil)).Where("address = ?", address).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateClaim(ctx context.Context, claim *core.ClaimTransaction) error {
	if _, err := s.db.NewInsert().Model(toClaimRow(claim)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetClaim(ctx context.Context, id string) (*core.ClaimTransaction, error) {
	var row claimRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	return row.toClaim(), nil
}

func (s *PostgresStore) PendingClaim(ctx context.Context, address string) (*core.ClaimTransaction, error) {
	var row claimRow
	err := s.db.NewSelect().Model(&row).
		Where("address = ?", address).
		Where("status = ?", string(core.ClaimStatusPending)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load pending claim: %w", err)
	}
	return row.toClaim(), nil
}

func (s *PostgresStore) UpdateClaim(ctx context.Context, claim *core.ClaimTransaction) error {
	res, err := s.db.NewUpdate().Model(toClaimRow(claim)).
		WherePK().
		Where("status = ?", string(core.ClaimStatusPending)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ConfirmClaim(ctx context.Context, claim *core.ClaimTransaction, account *core.Account) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Optimistic status check: the flip only lands if the row is still
		// pending, so a racing Confirm cannot double-count.
		res, err := tx.NewUpdate().Model(toClaimRow(claim)).
			WherePK().
			Where("status = ?", string(core.ClaimStatusPending)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to confirm claim: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return core.ErrNotFound
		}

		if _, err := tx.NewUpdate().Model(toAccountRow(account)).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("failed to update account counters: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteClaims(ctx context.Context, address string) error {
	_, err := s.db.NewDelete().Model((*claimRow)(nil)).Where("address = ?", address).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete claims: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPool(ctx context.Context) (*core.Pool, error) {
	var row poolRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", 1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load pool: %w", err)
	}
	return row.toPool(), nil
}

func (s *PostgresStore) AddDistributed(ctx context.Context, amount decimal.Decimal) error {
	_, err := s.db.NewUpdate().Model((*poolRow)(nil)).
		Set("total_distributed = total_distributed + ?", amount).
		Where("id = ?", 1).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add distributed amount: %w", err)
	}
	return nil
}

func (s *PostgresStore) IncrementParticipants(ctx context.Context) error {
	_, err := s.db.NewUpdate().Model((*poolRow)(nil)).
		Set("participant_count = participant_count + 1").
		Where("id = ?", 1).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment participants: %w", err)
	}
	return nil
}

func toAccountRow(a *core.Account) *accountRow {
	return &accountRow{
		Address:     a.Address,
		DisplayName: a.DisplayName,
		Contact:     a.Contact,
		TotalEarned: a.TotalEarned,
		TotalClaims: a.TotalClaims,
		LastClaimAt: a.LastClaimAt,
		CreatedAt:   a.CreatedAt,
	}
}

func (r *accountRow) toAccount() *core.Account {
	return &core.Account{
		Address:     r.Address,
		DisplayName: r.DisplayName,
		Contact:     r.Contact,
		TotalEarned: r.TotalEarned,
		TotalClaims: r.TotalClaims,
		LastClaimAt: r.LastClaimAt,
		CreatedAt:   r.CreatedAt,
	}
}

func toClaimRow(c *core.ClaimTransaction) *claimRow {
	return &claimRow{
		ID:            c.ID,
		Address:       c.Address,
		Amount:        c.Amount,
		Status:        string(c.Status),
		EarnedAt:      c.EarnedAt,
		ExpiresAt:     c.ExpiresAt,
		ClaimedAt:     c.ClaimedAt,
		SettlementRef: c.SettlementRef,
		FailureReason: c.FailureReason,
	}
}

func (r *claimRow) toClaim() *core.ClaimTransaction {
	return &core.ClaimTransaction{
		ID:            r.ID,
		Address:       r.Address,
		Amount:        r.Amount,
		Status:        core.ClaimStatus(r.Status),
		EarnedAt:      r.EarnedAt,
		ExpiresAt:     r.ExpiresAt,
		ClaimedAt:     r.ClaimedAt,
		SettlementRef: r.SettlementRef,
		FailureReason: r.FailureReason,
	}
}

func toPoolRow(p *core.Pool) *poolRow {
	return &poolRow{
		ID:               1,
		RatePerHour:      p.RatePerHour,
		MinIntervalHours: p.MinIntervalHours,
		CapPerWindow:     p.CapPerWindow,
		Active:           p.Active,
		TotalDistributed: p.TotalDistributed,
		ParticipantCount: p.ParticipantCount,
		CreatedAt:        p.CreatedAt,
	}
}

func (r *poolRow) toPool() *core.Pool {
	return &core.Pool{
		RatePerHour:      r.RatePerHour,
		MinIntervalHours: r.MinIntervalHours,
		CapPerWindow:     r.CapPerWindow,
		Active:           r.Active,
		TotalDistributed: r.TotalDistributed,
		ParticipantCount: r.ParticipantCount,
		CreatedAt:        r.CreatedAt,
	}
}
