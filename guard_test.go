package tokenledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	tokenledger "github.com/BarriosA2I/tokenledger"
	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/guard"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
	"github.com/BarriosA2I/tokenledger/subscription"
)

func TestReserve(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "starter", subscription.TokensStarter)

	res, err := l.Reserve(ctx, accountID, 5, "spend-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !res.Granted {
		t.Fatal("expected first reserve to be granted")
	}
	if res.BalanceAfter != 3 {
		t.Errorf("balance after first reserve: got %d, want 3", res.BalanceAfter)
	}

	// 3 remaining cannot cover another 5.
	res, err = l.Reserve(ctx, accountID, 5, "spend-2")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.Granted {
		t.Fatal("expected second reserve to be rejected")
	}
	if res.Reason != guard.RejectInsufficientBalance {
		t.Errorf("reason: got %q, want %q", res.Reason, guard.RejectInsufficientBalance)
	}
	if res.BalanceAfter != 3 {
		t.Errorf("balance after rejection: got %d, want 3", res.BalanceAfter)
	}

	// Refund restores the full allocation.
	rres, err := l.Refund(ctx, accountID, 5, id.Nil, entry.ReasonRefund)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if rres.BalanceAfter != 8 {
		t.Errorf("balance after refund: got %d, want 8", rres.BalanceAfter)
	}
}

func TestReserveValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "starter", subscription.TokensStarter)

	for _, cost := range []int64{0, -3} {
		if _, err := l.Reserve(ctx, accountID, cost, ""); err == nil {
			t.Errorf("Reserve(cost=%d): expected validation error", cost)
		}
	}
}

func TestReserveNoSubscription(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "", 0)

	// No subscription means a zero-allocation cycle, which rejects
	// every spend rather than erroring.
	res, err := l.Reserve(ctx, accountID, 1, "spend-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if res.Granted {
		t.Fatal("expected rejection on zero allocation")
	}
	if res.BalanceAfter != 0 {
		t.Errorf("balance: got %d, want 0", res.BalanceAfter)
	}
}

func TestReserveIdempotentReplay(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "starter", subscription.TokensStarter)

	first, err := l.Reserve(ctx, accountID, 3, "retry-key")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !first.Granted || first.Replayed {
		t.Fatalf("first reserve: granted=%v replayed=%v", first.Granted, first.Replayed)
	}

	second, err := l.Reserve(ctx, accountID, 3, "retry-key")
	if err != nil {
		t.Fatalf("Reserve replay: %v", err)
	}
	if !second.Granted || !second.Replayed {
		t.Fatalf("replay: granted=%v replayed=%v", second.Granted, second.Replayed)
	}
	if second.EntryID.String() != first.EntryID.String() {
		t.Errorf("replay entry: got %s, want %s", second.EntryID, first.EntryID)
	}
	if second.BalanceAfter != first.BalanceAfter {
		t.Errorf("replay balance: got %d, want %d", second.BalanceAfter, first.BalanceAfter)
	}

	// The replay must not have spent again.
	entries, err := l.ListEntries(ctx, accountID, entry.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries: got %d, want 1", len(entries))
	}
}

func TestReserveConcurrent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "starter", subscription.TokensStarter)

	const attempts = 20
	results := make([]*guard.Result, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = l.Reserve(ctx, accountID, 1, fmt.Sprintf("concurrent-%d", i))
		}(i)
	}
	wg.Wait()

	var granted int64
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("Reserve %d: %v", i, errs[i])
		}
		if results[i].Granted {
			granted++
		}
	}
	if granted != subscription.TokensStarter {
		t.Errorf("granted: got %d, want %d", granted, subscription.TokensStarter)
	}

	entries, err := l.ListEntries(ctx, accountID, entry.ListOpts{Reason: entry.ReasonProductionStart})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if int64(len(entries)) != subscription.TokensStarter {
		t.Errorf("spend entries: got %d, want %d", len(entries), subscription.TokensStarter)
	}

	bal, err := l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Balance != 0 {
		t.Errorf("final balance: got %d, want 0", bal.Balance)
	}
}

func TestBalanceAfterCheckpoints(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "starter", subscription.TokensStarter)

	for i := 0; i < 3; i++ {
		if _, err := l.Reserve(ctx, accountID, 2, fmt.Sprintf("spend-%d", i)); err != nil {
			t.Fatalf("Reserve: %v", err)
		}
	}
	if _, err := l.Refund(ctx, accountID, 2, id.Nil, entry.ReasonRefund); err != nil {
		t.Fatalf("Refund: %v", err)
	}

	// Replaying the entries oldest-first must reconstruct every
	// BalanceAfter checkpoint from the allocation and the deltas.
	entries, err := l.ListEntries(ctx, accountID, entry.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}

	running := subscription.TokensStarter
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		running += e.Delta
		if e.BalanceAfter != running {
			t.Errorf("entry %s: BalanceAfter got %d, want %d", e.ID, e.BalanceAfter, running)
		}
	}
	if running != 4 {
		t.Errorf("final balance: got %d, want 4", running)
	}
}

func TestStartProduction(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "creator", subscription.TokensCreator)

	p, res, err := l.StartProduction(ctx, accountID, production.Spec{Title: "Launch ad"})
	if err != nil {
		t.Fatalf("StartProduction: %v", err)
	}
	if !res.Granted {
		t.Fatal("expected spend to be granted")
	}

	// Defaults for omitted spec fields.
	if p.TokensRequired != 1 {
		t.Errorf("tokens: got %d, want 1", p.TokensRequired)
	}
	if p.Format != "16:9" {
		t.Errorf("format: got %q, want 16:9", p.Format)
	}
	if p.Priority != production.PriorityStandard {
		t.Errorf("priority: got %q, want standard", p.Priority)
	}
	if p.Status != production.StatusPending {
		t.Errorf("status: got %q, want pending", p.Status)
	}
	if p.QueuedAt == nil {
		t.Error("expected QueuedAt to be set")
	}

	// The spend entry links back to the production.
	entries, err := l.ListEntries(ctx, accountID, entry.ListOpts{Reason: entry.ReasonProductionStart})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries))
	}
	if entries[0].RelatedProductionID.String() != p.ID.String() {
		t.Errorf("related production: got %s, want %s", entries[0].RelatedProductionID, p.ID)
	}
	if entries[0].Delta != -1 {
		t.Errorf("delta: got %d, want -1", entries[0].Delta)
	}
}

func TestStartProductionRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "", 0)

	p, res, err := l.StartProduction(ctx, accountID, production.Spec{
		Title:          "Rush ad",
		TokensRequired: subscription.CostRushVideo,
		Priority:       production.PriorityRush,
	})
	if err != nil {
		t.Fatalf("StartProduction: %v", err)
	}
	if res.Granted {
		t.Fatal("expected rejection")
	}
	if p.Status != production.StatusCancelled {
		t.Errorf("status: got %q, want cancelled", p.Status)
	}

	// Nothing was spent, nothing was recorded.
	entries, err := l.ListEntries(ctx, accountID, entry.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries: got %d, want 0", len(entries))
	}
}

func TestFailProduction(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "starter", subscription.TokensStarter)

	p, res, err := l.StartProduction(ctx, accountID, production.Spec{
		Title:          "Doomed ad",
		TokensRequired: 2,
	})
	if err != nil {
		t.Fatalf("StartProduction: %v", err)
	}
	if res.BalanceAfter != 6 {
		t.Fatalf("balance after start: got %d, want 6", res.BalanceAfter)
	}

	if err := l.FailProduction(ctx, p.ID); err != nil {
		t.Fatalf("FailProduction: %v", err)
	}

	got, err := l.GetProduction(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduction: %v", err)
	}
	if got.Status != production.StatusFailed {
		t.Errorf("status: got %q, want failed", got.Status)
	}

	bal, err := l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Balance != 8 {
		t.Errorf("balance after refund: got %d, want 8", bal.Balance)
	}

	// Retrying the failure callback must not refund twice.
	if err := l.FailProduction(ctx, p.ID); err != nil {
		t.Fatalf("FailProduction retry: %v", err)
	}
	bal, err = l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Balance != 8 {
		t.Errorf("balance after retried refund: got %d, want 8", bal.Balance)
	}

	refunds, err := l.ListEntries(ctx, accountID, entry.ListOpts{Reason: entry.ReasonRefund})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(refunds) != 1 {
		t.Errorf("refund entries: got %d, want 1", len(refunds))
	}
}

func TestFailProductionNotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	err := l.FailProduction(context.Background(), id.NewProductionID())
	if !errors.Is(err, tokenledger.ErrProductionNotFound) {
		t.Errorf("expected ErrProductionNotFound, got %v", err)
	}
}
