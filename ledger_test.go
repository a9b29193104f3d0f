package tokenledger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	tokenledger "github.com/BarriosA2I/tokenledger"
	"github.com/BarriosA2I/tokenledger/account"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/store/memory"
	"github.com/BarriosA2I/tokenledger/subscription"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestLedger builds a started engine over a fresh memory store.
func newTestLedger(t *testing.T, opts ...tokenledger.Option) (*tokenledger.Ledger, *memory.Store) {
	t.Helper()

	s := memory.New()
	opts = append([]tokenledger.Option{tokenledger.WithLogger(quietLogger())}, opts...)
	l := tokenledger.New(s, opts...)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })
	return l, s
}

// fundAccount creates an account with an active subscription granting
// the given monthly token quota. A zero quota creates the account with
// no subscription at all.
func fundAccount(t *testing.T, l *tokenledger.Ledger, tier string, tokens int64) id.AccountID {
	t.Helper()
	ctx := context.Background()

	a := &account.Account{OwnerID: "owner-" + id.NewAccountID().String()}
	if err := l.CreateAccount(ctx, a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	if tokens > 0 {
		sub := &subscription.Subscription{
			AccountID:     a.ID,
			Tier:          tier,
			MonthlyTokens: tokens,
			Status:        subscription.StatusActive,
		}
		if err := l.UpsertSubscription(ctx, sub); err != nil {
			t.Fatalf("UpsertSubscription: %v", err)
		}
	}
	return a.ID
}

func TestCreateAccount(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	t.Run("assigns ID and entity", func(t *testing.T) {
		a := &account.Account{OwnerID: "user-123"}
		if err := l.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}
		if a.ID.IsNil() {
			t.Error("expected non-nil account ID")
		}
		if a.ID.Prefix() != id.PrefixAccount {
			t.Errorf("prefix: got %q, want %q", a.ID.Prefix(), id.PrefixAccount)
		}
		if a.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}
	})

	t.Run("rejects empty owner", func(t *testing.T) {
		err := l.CreateAccount(ctx, &account.Account{})
		var verr tokenledger.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if verr.Field != "owner_id" {
			t.Errorf("field: got %q, want owner_id", verr.Field)
		}
	})
}

func TestGetAccountByOwner(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	a := &account.Account{OwnerID: "user-789", Name: "Studio"}
	if err := l.CreateAccount(ctx, a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	got, err := l.GetAccountByOwner(ctx, "user-789")
	if err != nil {
		t.Fatalf("GetAccountByOwner: %v", err)
	}
	if got.ID.String() != a.ID.String() {
		t.Errorf("ID: got %s, want %s", got.ID, a.ID)
	}

	if _, err := l.GetAccountByOwner(ctx, "nobody"); !errors.Is(err, tokenledger.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestUpsertSubscription(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	accountID := fundAccount(t, l, "", 0)

	t.Run("applies defaults", func(t *testing.T) {
		sub := &subscription.Subscription{
			AccountID:     accountID,
			Tier:          "starter",
			MonthlyTokens: subscription.TokensStarter,
			Status:        subscription.StatusActive,
		}
		if err := l.UpsertSubscription(ctx, sub); err != nil {
			t.Fatalf("UpsertSubscription: %v", err)
		}
		if sub.ID.IsNil() {
			t.Error("expected non-nil subscription ID")
		}
		if sub.Interval != subscription.IntervalMonthly {
			t.Errorf("interval: got %q, want monthly", sub.Interval)
		}
		if sub.CurrentPeriodStart.IsZero() || sub.CurrentPeriodEnd.IsZero() {
			t.Error("expected billing period to be initialized")
		}
		if !sub.CurrentPeriodEnd.After(sub.CurrentPeriodStart) {
			t.Error("expected period end after period start")
		}
	})

	t.Run("rejects negative quota", func(t *testing.T) {
		err := l.UpsertSubscription(ctx, &subscription.Subscription{
			AccountID:     accountID,
			MonthlyTokens: -1,
		})
		var verr tokenledger.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects missing account", func(t *testing.T) {
		err := l.UpsertSubscription(ctx, &subscription.Subscription{MonthlyTokens: 5})
		var verr tokenledger.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestTokensForTier(t *testing.T) {
	tests := []struct {
		tier string
		want int64
	}{
		{"starter", 8},
		{"creator", 18},
		{"growth", 32},
		{"scale", 64},
		{"unknown", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			if got := subscription.TokensForTier(tt.tier); got != tt.want {
				t.Errorf("TokensForTier(%q): got %d, want %d", tt.tier, got, tt.want)
			}
		})
	}
}
