package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	tokenledger "github.com/BarriosA2I/tokenledger"
	"github.com/BarriosA2I/tokenledger/account"
	"github.com/BarriosA2I/tokenledger/cycle"
	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
	ledgerstore "github.com/BarriosA2I/tokenledger/store"
	"github.com/BarriosA2I/tokenledger/subscription"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
//
// The atomicity obligations (ReserveTokens, ReleaseTokens,
// ConsumeMulligan) are met with single conditional UPDATE statements,
// so correctness holds across processes sharing one database, not just
// within this one.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tokenledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tokenledger/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	res, err := s.pg.NewInsert(m).
		OnConflict("(owner_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokenledger.ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := s.pg.NewSelect(m).
		Where("id = ?", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) GetAccountByOwner(ctx context.Context, ownerID string) (*account.Account, error) {
	m := new(accountModel)
	err := s.pg.NewSelect(m).
		Where("owner_id = ?", ownerID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokenledger.ErrAccountNotFound
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) UpsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.pg.NewInsert(m).
		OnConflict("(account_id) DO UPDATE").
		Set("tier = EXCLUDED.tier").
		Set("interval = EXCLUDED.interval").
		Set("monthly_tokens = EXCLUDED.monthly_tokens").
		Set("status = EXCLUDED.status").
		Set("current_period_start = EXCLUDED.current_period_start").
		Set("current_period_end = EXCLUDED.current_period_end").
		Set("canceled_at = EXCLUDED.canceled_at").
		Set("metadata = EXCLUDED.metadata").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, accountID id.AccountID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("account_id = ?", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

// ==================== Cycle Store ====================

func (s *Store) CreateCycle(ctx context.Context, c *cycle.Cycle) error {
	m := toCycleModel(c)
	res, err := s.pg.NewInsert(m).
		OnConflict("(account_id, cycle_number) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokenledger.ErrCycleExists
	}
	return nil
}

func (s *Store) GetCycle(ctx context.Context, cycleID id.CycleID) (*cycle.Cycle, error) {
	m := new(cycleModel)
	err := s.pg.NewSelect(m).
		Where("id = ?", cycleID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrCycleNotFound
		}
		return nil, err
	}
	return fromCycleModel(m)
}

func (s *Store) GetActiveCycle(ctx context.Context, accountID id.AccountID, at time.Time) (*cycle.Cycle, error) {
	m := new(cycleModel)
	err := s.pg.NewSelect(m).
		Where("account_id = ?", accountID.String()).
		Where("period_start <= ?", at).
		Where("period_end > ?", at).
		OrderExpr("cycle_number DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrNoActiveCycle
		}
		return nil, err
	}
	return fromCycleModel(m)
}

func (s *Store) GetLatestCycle(ctx context.Context, accountID id.AccountID) (*cycle.Cycle, error) {
	m := new(cycleModel)
	err := s.pg.NewSelect(m).
		Where("account_id = ?", accountID.String()).
		OrderExpr("cycle_number DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrCycleNotFound
		}
		return nil, err
	}
	return fromCycleModel(m)
}

func (s *Store) ListCycles(ctx context.Context, accountID id.AccountID) ([]*cycle.Cycle, error) {
	var models []cycleModel
	err := s.pg.NewSelect(&models).
		Where("account_id = ?", accountID.String()).
		OrderExpr("cycle_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*cycle.Cycle, len(models))
	for i := range models {
		c, err := fromCycleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ReserveTokens is the atomic check-and-deduct: the conditional UPDATE
// both verifies and moves the counter in one statement, so two
// concurrent reserves can never both be admitted against tokens that
// only cover one of them.
func (s *Store) ReserveTokens(ctx context.Context, cycleID id.CycleID, cost int64) (int64, error) {
	var remaining int64
	err := s.pg.NewRaw(`
		UPDATE lab_cycles
		SET tokens_used = tokens_used + ?, updated_at = ?
		WHERE id = ? AND tokens_allocated - tokens_used >= ?
		RETURNING tokens_allocated - tokens_used
	`, cost, now(), cycleID.String(), cost).Scan(ctx, &remaining)
	if err != nil {
		if isNoRows(err) {
			// Condition failed: missing cycle or not enough tokens.
			if _, gerr := s.GetCycle(ctx, cycleID); gerr != nil {
				return 0, gerr
			}
			return 0, tokenledger.ErrInsufficientBalance
		}
		return 0, err
	}
	return remaining, nil
}

func (s *Store) ReleaseTokens(ctx context.Context, cycleID id.CycleID, amount int64) (int64, error) {
	var remaining int64
	err := s.pg.NewRaw(`
		UPDATE lab_cycles
		SET tokens_used = GREATEST(tokens_used - ?, 0), updated_at = ?
		WHERE id = ?
		RETURNING tokens_allocated - tokens_used
	`, amount, now(), cycleID.String()).Scan(ctx, &remaining)
	if err != nil {
		if isNoRows(err) {
			return 0, tokenledger.ErrCycleNotFound
		}
		return 0, err
	}
	return remaining, nil
}

// ==================== Ledger Entry Store ====================

func (s *Store) AppendEntry(ctx context.Context, e *entry.Entry) error {
	m := toEntryModel(e)
	q := s.pg.NewInsert(m)
	if e.IdempotencyKey != "" {
		q = q.OnConflict("(idempotency_key) WHERE idempotency_key != '' DO NOTHING")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	if e.IdempotencyKey != "" {
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return tokenledger.ErrDuplicateEntry
		}
	}
	return nil
}

func (s *Store) GetEntryByKey(ctx context.Context, idempotencyKey string) (*entry.Entry, error) {
	m := new(entryModel)
	err := s.pg.NewSelect(m).
		Where("idempotency_key = ?", idempotencyKey).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrEntryNotFound
		}
		return nil, err
	}
	return fromEntryModel(m)
}

func (s *Store) ListEntries(ctx context.Context, accountID id.AccountID, opts entry.ListOpts) ([]*entry.Entry, error) {
	var models []entryModel
	q := s.pg.NewSelect(&models).
		Where("account_id = ?", accountID.String())

	if !opts.CycleID.IsNil() {
		q = q.Where("cycle_id = ?", opts.CycleID.String())
	}
	if opts.Reason != "" {
		q = q.Where("reason = ?", string(opts.Reason))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*entry.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Production Store ====================

func (s *Store) CreateProduction(ctx context.Context, p *production.Production) error {
	m := toProductionModel(p)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetProduction(ctx context.Context, productionID id.ProductionID) (*production.Production, error) {
	m := new(productionModel)
	err := s.pg.NewSelect(m).
		Where("id = ?", productionID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrProductionNotFound
		}
		return nil, err
	}
	return fromProductionModel(m)
}

func (s *Store) GetProductionByMulliganToken(ctx context.Context, token string) (*production.Production, error) {
	if token == "" {
		return nil, tokenledger.ErrMulliganNotFound
	}
	m := new(productionModel)
	err := s.pg.NewSelect(m).
		Where("mulligan_token = ?", token).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrMulliganNotFound
		}
		return nil, err
	}
	return fromProductionModel(m)
}

func (s *Store) UpdateProductionStatus(ctx context.Context, productionID id.ProductionID, status production.Status) error {
	t := now()
	q := s.pg.NewUpdate((*productionModel)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = ?", t).
		Where("id = ?", productionID.String())

	if status == production.StatusCompleted {
		q = q.Set("completed_at = ?", t)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokenledger.ErrProductionNotFound
	}
	return nil
}

func (s *Store) SetMulliganToken(ctx context.Context, productionID id.ProductionID, token string) error {
	res, err := s.pg.NewUpdate((*productionModel)(nil)).
		Set("mulligan_token = ?", token).
		Set("updated_at = ?", now()).
		Where("id = ?", productionID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tokenledger.ErrProductionNotFound
	}
	return nil
}

func (s *Store) CountProductions(ctx context.Context, accountID id.AccountID) (int64, error) {
	var total int64
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM lab_productions WHERE account_id = ?
	`, accountID.String()).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ConsumeMulligan flips mulligan_used in a single conditional UPDATE:
// exactly one of N concurrent redeems matches the FALSE row.
func (s *Store) ConsumeMulligan(ctx context.Context, productionID id.ProductionID) error {
	res, err := s.pg.NewUpdate((*productionModel)(nil)).
		Set("mulligan_used = TRUE").
		Set("updated_at = ?", now()).
		Where("id = ?", productionID.String()).
		Where("mulligan_used = FALSE").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, gerr := s.GetProduction(ctx, productionID); gerr != nil {
			return gerr
		}
		return tokenledger.ErrMulliganAlreadyUsed
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
