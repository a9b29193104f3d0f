package tokenledger

import (
	"context"
	"fmt"
	"time"

	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/mulligan"
	"github.com/BarriosA2I/tokenledger/production"
	"github.com/BarriosA2I/tokenledger/types"
)

// ──────────────────────────────────────────────────
// Mulligan authorizer
// ──────────────────────────────────────────────────

// CompleteProduction is the pipeline's success callback: it marks the
// production completed and issues its single-use mulligan token. Each
// production is issued at most one token; calling this again returns
// the production unchanged.
func (l *Ledger) CompleteProduction(ctx context.Context, productionID id.ProductionID) (*production.Production, error) {
	p, err := l.store.GetProduction(ctx, productionID)
	if err != nil {
		return nil, err
	}

	if p.Status == production.StatusCompleted && p.MulliganToken != "" {
		return p, nil
	}

	if err := l.store.UpdateProductionStatus(ctx, p.ID, production.StatusCompleted); err != nil {
		return nil, err
	}

	if p.MulliganToken == "" {
		token, err := mulligan.GenerateToken()
		if err != nil {
			return nil, fmt.Errorf("generate mulligan token: %w", err)
		}
		if err := l.store.SetMulliganToken(ctx, p.ID, token); err != nil {
			return nil, err
		}
	}

	p, err = l.store.GetProduction(ctx, productionID)
	if err != nil {
		return nil, err
	}

	l.logger.Info("production completed",
		"production_id", p.ID.String(),
		"account_id", p.AccountID.String(),
	)
	l.plugins.EmitProductionCompleted(ctx, p)

	return p, nil
}

// MulliganInfo validates a mulligan token without consuming it, for
// rendering a confirmation step before the customer commits to the
// redo. Unknown tokens return ErrMulliganNotFound.
func (l *Ledger) MulliganInfo(ctx context.Context, token string) (*mulligan.Info, error) {
	p, err := l.store.GetProductionByMulliganToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &mulligan.Info{
		ProductionID: p.ID,
		Title:        p.Title,
		Status:       p.Status,
		Available:    p.MulliganAvailable(),
		CreatedAt:    p.CreatedAt,
	}, nil
}

// RedeemMulligan consumes a mulligan token and queues a zero-cost
// replacement production for the one it belongs to. Consumption is a
// compare-and-swap in the store, so of N concurrent redeems of the
// same token exactly one wins; the rest get ErrMulliganAlreadyUsed.
//
// The replacement bypasses the token guard entirely. Its admission is
// still recorded as a zero-delta ledger entry so the audit trail shows
// the redo happened and what it would otherwise have cost.
func (l *Ledger) RedeemMulligan(ctx context.Context, token string) (*mulligan.Result, error) {
	orig, err := l.store.GetProductionByMulliganToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if orig.Status != production.StatusCompleted {
		return nil, ErrMulliganNotIssued
	}
	if orig.MulliganUsed {
		return nil, ErrMulliganAlreadyUsed
	}

	if err := l.store.ConsumeMulligan(ctx, orig.ID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	repl := &production.Production{
		Entity:         types.NewEntity(),
		ID:             id.NewProductionID(),
		AccountID:      orig.AccountID,
		Title:          orig.Title,
		Script:         orig.Script,
		Format:         orig.Format,
		DurationSecs:   orig.DurationSecs,
		Priority:       orig.Priority,
		TokensRequired: 0,
		Status:         production.StatusPending,
		OriginalID:     orig.ID,
		QueuedAt:       &now,
	}
	if err := l.store.CreateProduction(ctx, repl); err != nil {
		// The token is already burned; surface loudly, an operator
		// adjustment is the recovery path.
		l.logger.Error("mulligan consumed but replacement not created",
			"original_id", orig.ID.String(),
			"account_id", orig.AccountID.String(),
			"error", err,
		)
		return nil, err
	}

	if err := l.recordMulliganGrant(ctx, repl); err != nil {
		l.logger.Error("mulligan grant entry not recorded",
			"replacement_id", repl.ID.String(),
			"error", err,
		)
	}

	l.logger.Info("mulligan redeemed",
		"original_id", orig.ID.String(),
		"replacement_id", repl.ID.String(),
		"account_id", orig.AccountID.String(),
	)
	l.plugins.EmitMulliganRedeemed(ctx, orig, repl)

	return &mulligan.Result{
		OriginalID:  orig.ID,
		Replacement: repl,
	}, nil
}

// recordMulliganGrant appends the zero-delta audit entry for a redeemed
// mulligan. The balance checkpoint is informational here; no tokens
// move.
func (l *Ledger) recordMulliganGrant(ctx context.Context, repl *production.Production) error {
	unlock := l.locks.lock(repl.AccountID)
	defer unlock()

	cyc, err := l.ResolveActiveCycle(ctx, repl.AccountID)
	if err != nil {
		return err
	}

	return l.store.AppendEntry(ctx, &entry.Entry{
		ID:                  id.NewEntryID(),
		AccountID:           repl.AccountID,
		CycleID:             cyc.ID,
		Delta:               0,
		BalanceAfter:        cyc.Balance(),
		Reason:              entry.ReasonMulliganGrant,
		RelatedProductionID: repl.ID,
		IdempotencyKey:      fmt.Sprintf("mulligan_%s", repl.ID),
		Description:         "Free redo of: " + repl.Title,
		CreatedAt:           time.Now().UTC(),
	})
}
