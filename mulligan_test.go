package tokenledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	tokenledger "github.com/BarriosA2I/tokenledger"
	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
	"github.com/BarriosA2I/tokenledger/subscription"
)

// completedProduction starts and completes a production, returning it
// with its mulligan token issued.
func completedProduction(t *testing.T, l *tokenledger.Ledger, accountID id.AccountID, title string) *production.Production {
	t.Helper()
	ctx := context.Background()

	p, res, err := l.StartProduction(ctx, accountID, production.Spec{Title: title})
	if err != nil {
		t.Fatalf("StartProduction: %v", err)
	}
	if !res.Granted {
		t.Fatal("expected spend to be granted")
	}

	done, err := l.CompleteProduction(ctx, p.ID)
	if err != nil {
		t.Fatalf("CompleteProduction: %v", err)
	}
	return done
}

func TestCompleteProduction(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "creator", subscription.TokensCreator)

	p := completedProduction(t, l, accountID, "First cut")

	if p.Status != production.StatusCompleted {
		t.Errorf("status: got %q, want completed", p.Status)
	}
	if p.MulliganToken == "" {
		t.Error("expected mulligan token to be issued")
	}
	if p.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}

	// Completing again returns the production unchanged with the same
	// token: one mulligan per production, ever.
	again, err := l.CompleteProduction(ctx, p.ID)
	if err != nil {
		t.Fatalf("CompleteProduction retry: %v", err)
	}
	if again.MulliganToken != p.MulliganToken {
		t.Errorf("token changed on retry: got %q, want %q", again.MulliganToken, p.MulliganToken)
	}
}

func TestMulliganInfo(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "creator", subscription.TokensCreator)

	p := completedProduction(t, l, accountID, "Summer promo")

	info, err := l.MulliganInfo(ctx, p.MulliganToken)
	if err != nil {
		t.Fatalf("MulliganInfo: %v", err)
	}
	if info.ProductionID.String() != p.ID.String() {
		t.Errorf("production: got %s, want %s", info.ProductionID, p.ID)
	}
	if info.Title != "Summer promo" {
		t.Errorf("title: got %q, want Summer promo", info.Title)
	}
	if !info.Available {
		t.Error("expected mulligan to be available")
	}

	// Checking twice consumes nothing.
	info, err = l.MulliganInfo(ctx, p.MulliganToken)
	if err != nil {
		t.Fatalf("MulliganInfo: %v", err)
	}
	if !info.Available {
		t.Error("expected mulligan still available after info lookup")
	}

	if _, err := l.MulliganInfo(ctx, "not-a-token"); !errors.Is(err, tokenledger.ErrMulliganNotFound) {
		t.Errorf("expected ErrMulliganNotFound, got %v", err)
	}
}

func TestRedeemMulligan(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "creator", subscription.TokensCreator)

	p := completedProduction(t, l, accountID, "Holiday spot")

	before, err := l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	res, err := l.RedeemMulligan(ctx, p.MulliganToken)
	if err != nil {
		t.Fatalf("RedeemMulligan: %v", err)
	}
	if res.OriginalID.String() != p.ID.String() {
		t.Errorf("original: got %s, want %s", res.OriginalID, p.ID)
	}

	repl := res.Replacement
	if repl.TokensRequired != 0 {
		t.Errorf("replacement cost: got %d, want 0", repl.TokensRequired)
	}
	if repl.Status != production.StatusPending {
		t.Errorf("replacement status: got %q, want pending", repl.Status)
	}
	if repl.OriginalID.String() != p.ID.String() {
		t.Errorf("replacement original link: got %s, want %s", repl.OriginalID, p.ID)
	}
	if repl.Title != p.Title {
		t.Errorf("replacement title: got %q, want %q", repl.Title, p.Title)
	}

	// The free redo moves no tokens.
	after, err := l.GetBalance(ctx, accountID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if after.Balance != before.Balance {
		t.Errorf("balance changed: got %d, want %d", after.Balance, before.Balance)
	}

	// It is still visible in the audit trail as a zero-delta grant.
	grants, err := l.ListEntries(ctx, accountID, entry.ListOpts{Reason: entry.ReasonMulliganGrant})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("grant entries: got %d, want 1", len(grants))
	}
	if grants[0].Delta != 0 {
		t.Errorf("grant delta: got %d, want 0", grants[0].Delta)
	}
	if grants[0].RelatedProductionID.String() != repl.ID.String() {
		t.Errorf("grant production: got %s, want %s", grants[0].RelatedProductionID, repl.ID)
	}

	// Second redemption of the same token fails.
	if _, err := l.RedeemMulligan(ctx, p.MulliganToken); !errors.Is(err, tokenledger.ErrMulliganAlreadyUsed) {
		t.Errorf("expected ErrMulliganAlreadyUsed, got %v", err)
	}

	info, err := l.MulliganInfo(ctx, p.MulliganToken)
	if err != nil {
		t.Fatalf("MulliganInfo: %v", err)
	}
	if info.Available {
		t.Error("expected mulligan unavailable after redemption")
	}
}

func TestRedeemMulliganNotIssued(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "creator", subscription.TokensCreator)

	p, _, err := l.StartProduction(ctx, accountID, production.Spec{Title: "Still rendering"})
	if err != nil {
		t.Fatalf("StartProduction: %v", err)
	}

	// A token attached to a production that never completed cannot be
	// redeemed.
	if err := s.SetMulliganToken(ctx, p.ID, "premature-token"); err != nil {
		t.Fatalf("SetMulliganToken: %v", err)
	}
	if _, err := l.RedeemMulligan(ctx, "premature-token"); !errors.Is(err, tokenledger.ErrMulliganNotIssued) {
		t.Errorf("expected ErrMulliganNotIssued, got %v", err)
	}
}

func TestRedeemMulliganConcurrent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "creator", subscription.TokensCreator)

	p := completedProduction(t, l, accountID, "Contested redo")

	const attempts = 10
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.RedeemMulligan(ctx, p.MulliganToken)
		}(i)
	}
	wg.Wait()

	var won int
	for i, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, tokenledger.ErrMulliganAlreadyUsed):
		default:
			t.Errorf("redeem %d: unexpected error %v", i, err)
		}
	}
	if won != 1 {
		t.Errorf("winners: got %d, want exactly 1", won)
	}
}

func TestReplacementEarnsOwnMulligan(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "creator", subscription.TokensCreator)

	p := completedProduction(t, l, accountID, "Original")

	res, err := l.RedeemMulligan(ctx, p.MulliganToken)
	if err != nil {
		t.Fatalf("RedeemMulligan: %v", err)
	}

	// When the free redo itself completes, it gets its own token.
	done, err := l.CompleteProduction(ctx, res.Replacement.ID)
	if err != nil {
		t.Fatalf("CompleteProduction: %v", err)
	}
	if done.MulliganToken == "" {
		t.Error("expected replacement to earn its own mulligan")
	}
	if done.MulliganToken == p.MulliganToken {
		t.Error("expected a distinct token for the replacement")
	}
}
