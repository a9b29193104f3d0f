package tokenledger_test

import (
	"context"
	"errors"
	"testing"

	tokenledger "github.com/BarriosA2I/tokenledger"
	"github.com/BarriosA2I/tokenledger/account"
	"github.com/BarriosA2I/tokenledger/balance"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
	"github.com/BarriosA2I/tokenledger/remote"
	"github.com/BarriosA2I/tokenledger/subscription"
)

// billedAccount creates an account carrying a billing key, with an
// active subscription at the given quota.
func billedAccount(t *testing.T, l *tokenledger.Ledger, tokens int64) id.AccountID {
	t.Helper()
	ctx := context.Background()

	a := &account.Account{
		OwnerID:    "owner-" + id.NewAccountID().String(),
		BillingKey: "cus_test_123",
	}
	if err := l.CreateAccount(ctx, a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	sub := &subscription.Subscription{
		AccountID:     a.ID,
		Tier:          "creator",
		MonthlyTokens: tokens,
		Status:        subscription.StatusActive,
	}
	if err := l.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}
	return a.ID
}

func TestGetBalanceLocal(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "starter", subscription.TokensStarter)

	// Before any spend there is no cycle yet; the read path reports
	// zero instead of opening one.
	res, err := l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if res.Source != balance.SourceLocal {
		t.Errorf("source: got %q, want local", res.Source)
	}
	if res.Balance != 0 || res.Allocated != 0 {
		t.Errorf("pre-cycle balance: got %d/%d, want 0/0", res.Balance, res.Allocated)
	}

	cycles, err := l.ListCycles(ctx, accountID)
	if err != nil {
		t.Fatalf("ListCycles: %v", err)
	}
	if len(cycles) != 0 {
		t.Errorf("cycles after read: got %d, want 0", len(cycles))
	}

	// A spend opens the cycle; the balance now reflects it.
	if _, err := l.Reserve(ctx, accountID, 3, "spend-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	res, err = l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if res.Balance != 5 {
		t.Errorf("balance: got %d, want 5", res.Balance)
	}
	if res.Allocated != 8 || res.Used != 3 {
		t.Errorf("allocated/used: got %d/%d, want 8/3", res.Allocated, res.Used)
	}
	if res.PlanType != "starter" {
		t.Errorf("plan: got %q, want starter", res.PlanType)
	}
}

func TestGetBalanceAuthoritative(t *testing.T) {
	client := remote.ClientFunc(func(_ context.Context, billingKey string) (*remote.Balance, error) {
		if billingKey != "cus_test_123" {
			return nil, errors.New("unknown billing key")
		}
		return &remote.Balance{Balance: 42, PlanType: "growth"}, nil
	})
	l, _ := newTestLedger(t, tokenledger.WithRemoteBalance(client))
	ctx := context.Background()
	accountID := billedAccount(t, l, subscription.TokensCreator)

	if _, err := l.Reserve(ctx, accountID, 2, "spend-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	res, err := l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if res.Source != balance.SourceAuthoritative {
		t.Errorf("source: got %q, want authoritative", res.Source)
	}
	if res.Balance != 42 {
		t.Errorf("balance: got %d, want 42 (remote figure)", res.Balance)
	}
	if res.PlanType != "growth" {
		t.Errorf("plan: got %q, want growth (remote figure)", res.PlanType)
	}
	// Local counters ride along for display.
	if res.Allocated != 18 || res.Used != 2 {
		t.Errorf("allocated/used: got %d/%d, want 18/2", res.Allocated, res.Used)
	}
}

func TestGetBalanceRemoteFallback(t *testing.T) {
	client := remote.ClientFunc(func(_ context.Context, _ string) (*remote.Balance, error) {
		return nil, errors.New("billing backend down")
	})
	l, _ := newTestLedger(t, tokenledger.WithRemoteBalance(client))
	ctx := context.Background()
	accountID := billedAccount(t, l, subscription.TokensCreator)

	if _, err := l.Reserve(ctx, accountID, 4, "spend-1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	res, err := l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if res.Source != balance.SourceLocalFallback {
		t.Errorf("source: got %q, want local_fallback", res.Source)
	}
	if res.Balance != 14 {
		t.Errorf("balance: got %d, want 14 (local figure)", res.Balance)
	}
}

func TestGetBalanceNoBillingKey(t *testing.T) {
	calls := 0
	client := remote.ClientFunc(func(_ context.Context, _ string) (*remote.Balance, error) {
		calls++
		return &remote.Balance{Balance: 99}, nil
	})
	l, _ := newTestLedger(t, tokenledger.WithRemoteBalance(client))
	ctx := context.Background()

	// Remote configured, but the account has no billing key yet.
	accountID := fundAccount(t, l, "starter", subscription.TokensStarter)

	res, err := l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if res.Source != balance.SourceLocal {
		t.Errorf("source: got %q, want local", res.Source)
	}
	if calls != 0 {
		t.Errorf("remote calls: got %d, want 0", calls)
	}
}

func TestGetBalanceAccountNotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.GetBalance(context.Background(), id.NewAccountID())
	if !errors.Is(err, tokenledger.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestBalanceDetails(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "creator", subscription.TokensCreator)

	for _, title := range []string{"Spot A", "Spot B"} {
		if _, _, err := l.StartProduction(ctx, accountID, production.Spec{Title: title}); err != nil {
			t.Fatalf("StartProduction: %v", err)
		}
	}

	d, err := l.BalanceDetails(ctx, accountID)
	if err != nil {
		t.Fatalf("BalanceDetails: %v", err)
	}
	if d.CurrentBalance != 16 {
		t.Errorf("current balance: got %d, want 16", d.CurrentBalance)
	}
	if d.Tier != "creator" {
		t.Errorf("tier: got %q, want creator", d.Tier)
	}
	if d.MonthlyAllocation != subscription.TokensCreator {
		t.Errorf("monthly allocation: got %d, want %d", d.MonthlyAllocation, subscription.TokensCreator)
	}
	if d.LifetimeAllocated != 18 || d.LifetimeUsed != 2 {
		t.Errorf("lifetime: got %d/%d, want 18/2", d.LifetimeAllocated, d.LifetimeUsed)
	}
	if d.TotalProductions != 2 {
		t.Errorf("productions: got %d, want 2", d.TotalProductions)
	}
}
