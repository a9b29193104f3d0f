package tokenledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/BarriosA2I/tokenledger/subscription"
)

func TestResolveActiveCycleLazyOpen(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "growth", subscription.TokensGrowth)

	c, err := l.ResolveActiveCycle(ctx, accountID)
	if err != nil {
		t.Fatalf("ResolveActiveCycle: %v", err)
	}
	if c.Number != 1 {
		t.Errorf("number: got %d, want 1", c.Number)
	}
	if c.TokensAllocated != subscription.TokensGrowth {
		t.Errorf("allocated: got %d, want %d", c.TokensAllocated, subscription.TokensGrowth)
	}
	if c.TokensUsed != 0 {
		t.Errorf("used: got %d, want 0", c.TokensUsed)
	}
	if !c.Contains(time.Now().UTC()) {
		t.Error("expected cycle window to contain now")
	}

	// A second resolution returns the same cycle, not a new one.
	again, err := l.ResolveActiveCycle(ctx, accountID)
	if err != nil {
		t.Fatalf("ResolveActiveCycle: %v", err)
	}
	if again.ID.String() != c.ID.String() {
		t.Errorf("cycle: got %s, want %s", again.ID, c.ID)
	}

	cycles, err := l.ListCycles(ctx, accountID)
	if err != nil {
		t.Fatalf("ListCycles: %v", err)
	}
	if len(cycles) != 1 {
		t.Errorf("cycles: got %d, want 1", len(cycles))
	}
}

func TestResolveActiveCycleNoSubscription(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "", 0)

	c, err := l.ResolveActiveCycle(ctx, accountID)
	if err != nil {
		t.Fatalf("ResolveActiveCycle: %v", err)
	}
	if c.TokensAllocated != 0 {
		t.Errorf("allocated: got %d, want 0", c.TokensAllocated)
	}
}

func TestResolveActiveCycleInactiveSubscription(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "", 0)

	sub := &subscription.Subscription{
		AccountID:     accountID,
		Tier:          "creator",
		MonthlyTokens: subscription.TokensCreator,
		Status:        subscription.StatusCanceled,
	}
	if err := l.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}

	// A canceled subscription entitles the account to nothing.
	c, err := l.ResolveActiveCycle(ctx, accountID)
	if err != nil {
		t.Fatalf("ResolveActiveCycle: %v", err)
	}
	if c.TokensAllocated != 0 {
		t.Errorf("allocated: got %d, want 0", c.TokensAllocated)
	}
}

func TestCycleSnapshotImmutable(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "starter", subscription.TokensStarter)

	c, err := l.ResolveActiveCycle(ctx, accountID)
	if err != nil {
		t.Fatalf("ResolveActiveCycle: %v", err)
	}
	if c.TokensAllocated != subscription.TokensStarter {
		t.Fatalf("allocated: got %d, want %d", c.TokensAllocated, subscription.TokensStarter)
	}

	// Upgrading the subscription must not touch the open cycle's
	// snapshot; the new quota applies from the next cycle only.
	sub, err := l.GetSubscription(ctx, accountID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	sub.Tier = "scale"
	sub.MonthlyTokens = subscription.TokensScale
	if err := l.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}

	again, err := l.ResolveActiveCycle(ctx, accountID)
	if err != nil {
		t.Fatalf("ResolveActiveCycle: %v", err)
	}
	if again.ID.String() != c.ID.String() {
		t.Fatalf("cycle: got %s, want %s", again.ID, c.ID)
	}
	if again.TokensAllocated != subscription.TokensStarter {
		t.Errorf("allocated after upgrade: got %d, want %d", again.TokensAllocated, subscription.TokensStarter)
	}
}

func TestCycleWindowFollowsSubscriptionPeriod(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "", 0)

	start := time.Now().UTC().Add(-72 * time.Hour).Truncate(time.Second)
	sub := &subscription.Subscription{
		AccountID:          accountID,
		Tier:               "creator",
		MonthlyTokens:      subscription.TokensCreator,
		Status:             subscription.StatusActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
	}
	if err := l.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}

	c, err := l.ResolveActiveCycle(ctx, accountID)
	if err != nil {
		t.Fatalf("ResolveActiveCycle: %v", err)
	}
	if !c.PeriodStart.Equal(start) {
		t.Errorf("period start: got %v, want %v", c.PeriodStart, start)
	}
	if !c.PeriodEnd.Equal(start.AddDate(0, 1, 0)) {
		t.Errorf("period end: got %v, want %v", c.PeriodEnd, start.AddDate(0, 1, 0))
	}
}
