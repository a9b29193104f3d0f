package tokenledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/guard"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
	"github.com/BarriosA2I/tokenledger/types"
)

// ──────────────────────────────────────────────────
// Token Guard
// ──────────────────────────────────────────────────

// Reserve atomically checks and deducts cost tokens from the account's
// active cycle. Rejections are returned as a typed result, not an
// error: only storage failures surface as errors, and those always
// mean nothing was spent (fail-closed).
//
// Presenting the same idempotency key twice replays the original
// outcome without spending twice, so a caller that timed out with an
// unknown outcome must retry with the same key.
func (l *Ledger) Reserve(ctx context.Context, accountID id.AccountID, cost int64, idempotencyKey string) (*guard.Result, error) {
	return l.reserve(ctx, accountID, cost, idempotencyKey, id.Nil, "")
}

func (l *Ledger) reserve(ctx context.Context, accountID id.AccountID, cost int64, idempotencyKey string, relatedProductionID id.ProductionID, description string) (*guard.Result, error) {
	if cost <= 0 {
		return nil, ValidationError{Field: "cost", Message: "must be positive"}
	}

	ctx, cancel := context.WithTimeout(ctx, l.reserveTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < l.maxRetries; attempt++ {
		res, err := l.reserveOnce(ctx, accountID, cost, idempotencyKey, relatedProductionID, description)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (l *Ledger) reserveOnce(ctx context.Context, accountID id.AccountID, cost int64, idempotencyKey string, relatedProductionID id.ProductionID, description string) (*guard.Result, error) {
	unlock := l.locks.lock(accountID)
	defer unlock()

	// Idempotent replay: an entry under this key means a prior attempt
	// already committed; return its outcome unchanged.
	if idempotencyKey != "" {
		if prior, err := l.store.GetEntryByKey(ctx, idempotencyKey); err == nil {
			return replayResult(prior), nil
		} else if !errors.Is(err, ErrEntryNotFound) {
			return nil, err
		}
	}

	cyc, err := l.ResolveActiveCycle(ctx, accountID)
	if err != nil {
		return nil, err
	}

	remaining, err := l.store.ReserveTokens(ctx, cyc.ID, cost)
	if errors.Is(err, ErrInsufficientBalance) {
		// Re-read for an accurate rejection balance; nothing was written.
		balance := cyc.Balance()
		if fresh, ferr := l.store.GetCycle(ctx, cyc.ID); ferr == nil {
			balance = fresh.Balance()
		}

		l.logger.Debug("reserve rejected",
			"account_id", accountID.String(),
			"cost", cost,
			"balance", balance,
		)
		l.plugins.EmitSpendRejected(ctx, accountID.String(), cost, balance)

		return &guard.Result{
			Granted:      false,
			BalanceAfter: balance,
			Reason:       guard.RejectInsufficientBalance,
			CycleID:      cyc.ID,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	e := &entry.Entry{
		ID:                  id.NewEntryID(),
		AccountID:           accountID,
		CycleID:             cyc.ID,
		Delta:               -cost,
		BalanceAfter:        remaining,
		Reason:              entry.ReasonProductionStart,
		RelatedProductionID: relatedProductionID,
		IdempotencyKey:      idempotencyKey,
		Description:         description,
		CreatedAt:           time.Now().UTC(),
	}

	if err := l.store.AppendEntry(ctx, e); err != nil {
		// The counter moved but the audit record did not: release the
		// reservation so the two never diverge, then report.
		if _, rerr := l.store.ReleaseTokens(ctx, cyc.ID, cost); rerr != nil {
			l.logger.Error("reserve: failed to release after append failure",
				"account_id", accountID.String(),
				"cycle_id", cyc.ID.String(),
				"cost", cost,
				"error", rerr,
			)
		}

		if errors.Is(err, ErrDuplicateEntry) {
			// Another process committed under this key between our
			// replay check and the append.
			if prior, gerr := l.store.GetEntryByKey(ctx, idempotencyKey); gerr == nil {
				return replayResult(prior), nil
			}
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("%w: append ledger entry: %w", ErrTransactionFailed, err)
	}

	l.logger.Debug("reserve granted",
		"account_id", accountID.String(),
		"cycle_id", cyc.ID.String(),
		"cost", cost,
		"balance_after", remaining,
	)
	l.plugins.EmitSpendGranted(ctx, e)

	return &guard.Result{
		Granted:      true,
		BalanceAfter: remaining,
		EntryID:      e.ID,
		CycleID:      cyc.ID,
	}, nil
}

// replayResult reconstructs the original reserve outcome from its
// committed ledger entry.
func replayResult(e *entry.Entry) *guard.Result {
	return &guard.Result{
		Granted:      true,
		BalanceAfter: e.BalanceAfter,
		EntryID:      e.ID,
		CycleID:      e.CycleID,
		Replayed:     true,
	}
}

// Refund credits amount tokens back to the account's currently active
// cycle (never a closed historical one) and appends a positive-delta
// ledger entry. The cycle's used counter floors at zero.
func (l *Ledger) Refund(ctx context.Context, accountID id.AccountID, amount int64, relatedProductionID id.ProductionID, reason entry.Reason) (*guard.Result, error) {
	return l.refund(ctx, accountID, amount, relatedProductionID, reason, "", "")
}

func (l *Ledger) refund(ctx context.Context, accountID id.AccountID, amount int64, relatedProductionID id.ProductionID, reason entry.Reason, idempotencyKey, description string) (*guard.Result, error) {
	if amount <= 0 {
		return nil, ValidationError{Field: "amount", Message: "must be positive"}
	}
	if reason == "" {
		reason = entry.ReasonRefund
	}

	unlock := l.locks.lock(accountID)
	defer unlock()

	if idempotencyKey != "" {
		if prior, err := l.store.GetEntryByKey(ctx, idempotencyKey); err == nil {
			return &guard.Result{
				Granted:      true,
				BalanceAfter: prior.BalanceAfter,
				EntryID:      prior.ID,
				CycleID:      prior.CycleID,
				Replayed:     true,
			}, nil
		} else if !errors.Is(err, ErrEntryNotFound) {
			return nil, err
		}
	}

	cyc, err := l.ResolveActiveCycle(ctx, accountID)
	if err != nil {
		return nil, err
	}

	remaining, err := l.store.ReleaseTokens(ctx, cyc.ID, amount)
	if err != nil {
		return nil, err
	}

	e := &entry.Entry{
		ID:                  id.NewEntryID(),
		AccountID:           accountID,
		CycleID:             cyc.ID,
		Delta:               amount,
		BalanceAfter:        remaining,
		Reason:              reason,
		RelatedProductionID: relatedProductionID,
		IdempotencyKey:      idempotencyKey,
		Description:         description,
		CreatedAt:           time.Now().UTC(),
	}

	if err := l.store.AppendEntry(ctx, e); err != nil {
		if errors.Is(err, ErrDuplicateEntry) {
			// Cross-process duplicate: take the credit back and replay.
			if _, rerr := l.store.ReserveTokens(ctx, cyc.ID, amount); rerr != nil {
				l.logger.Error("refund: failed to re-reserve after duplicate append",
					"account_id", accountID.String(),
					"cycle_id", cyc.ID.String(),
					"amount", amount,
					"error", rerr,
				)
			}
			if prior, gerr := l.store.GetEntryByKey(ctx, idempotencyKey); gerr == nil {
				return &guard.Result{
					Granted:      true,
					BalanceAfter: prior.BalanceAfter,
					EntryID:      prior.ID,
					CycleID:      prior.CycleID,
					Replayed:     true,
				}, nil
			}
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("%w: append refund entry: %w", ErrTransactionFailed, err)
	}

	l.logger.Debug("refund credited",
		"account_id", accountID.String(),
		"cycle_id", cyc.ID.String(),
		"amount", amount,
		"balance_after", remaining,
	)
	l.plugins.EmitRefunded(ctx, e)

	return &guard.Result{
		Granted:      true,
		BalanceAfter: remaining,
		EntryID:      e.ID,
		CycleID:      cyc.ID,
	}, nil
}

// ──────────────────────────────────────────────────
// Production lifecycle
// ──────────────────────────────────────────────────

// StartProduction admits a new production: it creates the record,
// reserves its token cost through the guard, and tells the caller
// whether to enqueue the job. On rejection the record is cancelled and
// nothing is spent.
func (l *Ledger) StartProduction(ctx context.Context, accountID id.AccountID, spec production.Spec) (*production.Production, *guard.Result, error) {
	tokens := spec.TokensRequired
	if tokens <= 0 {
		tokens = 1
	}
	format := spec.Format
	if format == "" {
		format = "16:9"
	}
	priority := spec.Priority
	if priority == "" {
		priority = production.PriorityStandard
	}

	now := time.Now().UTC()
	p := &production.Production{
		Entity:         types.NewEntity(),
		ID:             id.NewProductionID(),
		AccountID:      accountID,
		Title:          spec.Title,
		Script:         spec.Script,
		Format:         format,
		DurationSecs:   spec.DurationSecs,
		Priority:       priority,
		TokensRequired: tokens,
		Status:         production.StatusPending,
		QueuedAt:       &now,
	}

	if err := l.store.CreateProduction(ctx, p); err != nil {
		return nil, nil, err
	}

	res, err := l.reserve(ctx, accountID, tokens,
		fmt.Sprintf("production_%s_debit", p.ID),
		p.ID,
		"Video production: "+spec.Title,
	)
	if err != nil {
		// Unknown spend outcome: cancel the record so it never reaches
		// the pipeline. A retry will create a fresh production.
		_ = l.store.UpdateProductionStatus(ctx, p.ID, production.StatusCancelled) //nolint:errcheck // best-effort cleanup
		return nil, nil, err
	}

	if !res.Granted {
		p.Status = production.StatusCancelled
		if err := l.store.UpdateProductionStatus(ctx, p.ID, production.StatusCancelled); err != nil {
			return nil, nil, err
		}
		return p, res, nil
	}

	return p, res, nil
}

// FailProduction is the pipeline's failure callback: it marks the
// production failed and refunds its reserved tokens. Safe to call more
// than once; the refund is idempotent by key.
func (l *Ledger) FailProduction(ctx context.Context, productionID id.ProductionID) error {
	p, err := l.store.GetProduction(ctx, productionID)
	if err != nil {
		return err
	}

	if err := l.store.UpdateProductionStatus(ctx, p.ID, production.StatusFailed); err != nil {
		return err
	}

	if p.TokensRequired > 0 {
		if _, err := l.refund(ctx, p.AccountID, p.TokensRequired, p.ID, entry.ReasonRefund,
			fmt.Sprintf("production_%s_refund", p.ID),
			"Refund for failed production: "+p.Title,
		); err != nil {
			return err
		}
	}

	l.logger.Info("production failed, tokens refunded",
		"production_id", p.ID.String(),
		"account_id", p.AccountID.String(),
		"tokens", p.TokensRequired,
	)
	return nil
}
