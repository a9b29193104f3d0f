package tokenledger

import (
	"context"
	"errors"
	"time"

	"github.com/BarriosA2I/tokenledger/cycle"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/subscription"
	"github.com/BarriosA2I/tokenledger/types"
)

// createCycleAttempts bounds the create/re-read loop when concurrent
// callers race to open the same cycle.
const createCycleAttempts = 3

// ResolveActiveCycle returns the cycle whose window contains now,
// creating one lazily if none exists (first use, or the prior cycle
// expired). Unused tokens from an expired cycle do not carry forward.
//
// Creation is idempotent under concurrent callers: the unique
// (account, number) constraint lets exactly one creator win, and the
// loser retries as a read, so both observe the same cycle. If
// subscription data is unavailable the cycle opens with a zero
// allocation, which naturally rejects all spend attempts rather than
// failing the request outright.
func (l *Ledger) ResolveActiveCycle(ctx context.Context, accountID id.AccountID) (*cycle.Cycle, error) {
	now := time.Now().UTC()

	for attempt := 0; attempt < createCycleAttempts; attempt++ {
		c, err := l.store.GetActiveCycle(ctx, accountID, now)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNoActiveCycle) {
			return nil, err
		}

		c, err = l.openCycle(ctx, accountID, now)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCycleExists) {
			return nil, err
		}
		// Lost the creation race; loop back and read the winner's cycle.
	}

	return nil, ErrConflict
}

// openCycle builds and persists the next cycle for an account,
// snapshotting the subscription quota at creation time.
func (l *Ledger) openCycle(ctx context.Context, accountID id.AccountID, now time.Time) (*cycle.Cycle, error) {
	var (
		allocated int64
		subID     id.SubscriptionID
		interval  = subscription.IntervalMonthly
		start     = now
	)

	sub, err := l.store.GetSubscription(ctx, accountID)
	switch {
	case err == nil && sub.IsActive():
		allocated = sub.MonthlyTokens
		subID = sub.ID
		interval = sub.Interval
		if sub.PeriodContains(now) {
			start = sub.CurrentPeriodStart
		}
	case err == nil || errors.Is(err, ErrSubscriptionNotFound):
		// Inactive or missing subscription: zero-allocation cycle.
	default:
		// Subscription store unavailable: degrade to a zero-allocation
		// cycle instead of failing the request.
		l.logger.Warn("cycle allocator: subscription unavailable, opening zero-allocation cycle",
			"account_id", accountID.String(),
			"error", err,
		)
	}

	number := 1
	if latest, err := l.store.GetLatestCycle(ctx, accountID); err == nil {
		number = latest.Number + 1
	} else if !errors.Is(err, ErrCycleNotFound) {
		return nil, err
	}

	c := &cycle.Cycle{
		Entity:          types.NewEntity(),
		ID:              id.NewCycleID(),
		AccountID:       accountID,
		SubscriptionID:  subID,
		Number:          number,
		TokensAllocated: allocated,
		TokensUsed:      0,
		PeriodStart:     start,
		PeriodEnd:       interval.AddInterval(start),
	}

	if err := l.store.CreateCycle(ctx, c); err != nil {
		return nil, err
	}

	l.logger.Debug("cycle opened",
		"account_id", accountID.String(),
		"cycle_id", c.ID.String(),
		"number", c.Number,
		"allocated", c.TokensAllocated,
	)
	l.plugins.EmitCycleOpened(ctx, c)

	return c, nil
}
