package tokenledger

import (
	"context"
	"errors"
	"time"

	"github.com/BarriosA2I/tokenledger/balance"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/subscription"
)

// GetBalance resolves the account's current token balance. When a
// remote billing client is configured and the account carries a
// billing key, the remote figure is authoritative; otherwise, or when
// the remote is unreachable, the local cycle counters answer and the
// result's Source says which path was taken. Read-only: never opens a
// cycle.
func (l *Ledger) GetBalance(ctx context.Context, accountID id.AccountID) (*balance.Result, error) {
	acct, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	local, err := l.localBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if l.remote == nil || acct.BillingKey == "" {
		return local, nil
	}

	rctx, cancel := context.WithTimeout(ctx, l.remoteTimeout)
	defer cancel()

	rb, err := l.remote.Balance(rctx, acct.BillingKey)
	if err != nil {
		l.logger.Warn("remote balance unavailable, using local",
			"account_id", accountID.String(),
			"error", err,
		)
		local.Source = balance.SourceLocalFallback
		l.plugins.EmitBalanceResolved(ctx, accountID.String(), local.Balance, string(local.Source))
		return local, nil
	}

	res := &balance.Result{
		Balance:   rb.Balance,
		Allocated: local.Allocated,
		Used:      local.Used,
		PlanType:  rb.PlanType,
		Source:    balance.SourceAuthoritative,
	}
	if res.PlanType == "" {
		res.PlanType = local.PlanType
	}
	l.plugins.EmitBalanceResolved(ctx, accountID.String(), res.Balance, string(res.Source))
	return res, nil
}

// localBalance answers from the active cycle's counters. An account
// with no cycle covering now reports zero rather than failing;
// lazy allocation only happens on the spend path.
func (l *Ledger) localBalance(ctx context.Context, accountID id.AccountID) (*balance.Result, error) {
	res := &balance.Result{Source: balance.SourceLocal}

	if sub, err := l.store.GetSubscription(ctx, accountID); err == nil {
		res.PlanType = sub.Tier
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	cyc, err := l.store.GetActiveCycle(ctx, accountID, time.Now().UTC())
	if errors.Is(err, ErrNoActiveCycle) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	res.Balance = cyc.Balance()
	res.Allocated = cyc.TokensAllocated
	res.Used = cyc.TokensUsed
	return res, nil
}

// BalanceDetails aggregates the account's lifetime ledger figures for
// dashboard display.
func (l *Ledger) BalanceDetails(ctx context.Context, accountID id.AccountID) (*balance.Details, error) {
	local, err := l.localBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	d := &balance.Details{
		CurrentBalance: local.Balance,
		Tier:           local.PlanType,
	}
	if d.Tier != "" {
		d.MonthlyAllocation = subscription.TokensForTier(d.Tier)
	}

	cycles, err := l.store.ListCycles(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, c := range cycles {
		d.LifetimeAllocated += c.TokensAllocated
		d.LifetimeUsed += c.TokensUsed
	}

	total, err := l.store.CountProductions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	d.TotalProductions = total

	return d, nil
}
