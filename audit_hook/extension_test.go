package audithook

import (
	"context"
	"testing"

	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/id"
)

// captureRecorder collects recorded events in order.
type captureRecorder struct {
	events []*AuditEvent
}

func (c *captureRecorder) Record(_ context.Context, evt *AuditEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func TestOnSpendGranted(t *testing.T) {
	rec := &captureRecorder{}
	ext := New(rec)
	ctx := context.Background()

	e := &entry.Entry{
		ID:           id.NewEntryID(),
		AccountID:    id.NewAccountID(),
		Delta:        -2,
		BalanceAfter: 6,
		Reason:       entry.ReasonProductionStart,
	}
	if err := ext.OnSpendGranted(ctx, e); err != nil {
		t.Fatalf("OnSpendGranted: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("events: got %d, want 1", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Action != ActionSpendGranted {
		t.Errorf("action: got %q, want %q", evt.Action, ActionSpendGranted)
	}
	if evt.ResourceID != e.ID.String() {
		t.Errorf("resource: got %q, want %q", evt.ResourceID, e.ID)
	}
	if evt.Outcome != OutcomeSuccess {
		t.Errorf("outcome: got %q, want success", evt.Outcome)
	}
	if evt.Metadata["delta"] != int64(-2) {
		t.Errorf("delta: got %v, want -2", evt.Metadata["delta"])
	}
}

func TestOnSpendRejected(t *testing.T) {
	rec := &captureRecorder{}
	ext := New(rec)

	if err := ext.OnSpendRejected(context.Background(), "acct_x", 5, 2); err != nil {
		t.Fatalf("OnSpendRejected: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("events: got %d, want 1", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Action != ActionSpendRejected {
		t.Errorf("action: got %q, want %q", evt.Action, ActionSpendRejected)
	}
	if evt.Severity != SeverityWarning {
		t.Errorf("severity: got %q, want warning", evt.Severity)
	}
	if evt.Outcome != OutcomeFailure {
		t.Errorf("outcome: got %q, want failure", evt.Outcome)
	}
}

func TestOnBalanceResolvedOnlyAuditsFallback(t *testing.T) {
	rec := &captureRecorder{}
	ext := New(rec)
	ctx := context.Background()

	// Healthy resolutions stay quiet.
	if err := ext.OnBalanceResolved(ctx, "acct_x", 8, "authoritative"); err != nil {
		t.Fatalf("OnBalanceResolved: %v", err)
	}
	if err := ext.OnBalanceResolved(ctx, "acct_x", 8, "local"); err != nil {
		t.Fatalf("OnBalanceResolved: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("events after healthy resolutions: got %d, want 0", len(rec.events))
	}

	if err := ext.OnBalanceResolved(ctx, "acct_x", 8, "local_fallback"); err != nil {
		t.Fatalf("OnBalanceResolved: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("events: got %d, want 1", len(rec.events))
	}
	if rec.events[0].Action != ActionBalanceDegraded {
		t.Errorf("action: got %q, want %q", rec.events[0].Action, ActionBalanceDegraded)
	}
	if rec.events[0].Outcome != OutcomePartial {
		t.Errorf("outcome: got %q, want partial", rec.events[0].Outcome)
	}
}

func TestActionFiltering(t *testing.T) {
	t.Run("enabled list", func(t *testing.T) {
		rec := &captureRecorder{}
		ext := New(rec, WithEnabledActions(ActionSpendRejected))
		ctx := context.Background()

		_ = ext.OnSpendGranted(ctx, &entry.Entry{})
		_ = ext.OnSpendRejected(ctx, "acct_x", 1, 0)

		if len(rec.events) != 1 {
			t.Fatalf("events: got %d, want 1", len(rec.events))
		}
		if rec.events[0].Action != ActionSpendRejected {
			t.Errorf("action: got %q, want %q", rec.events[0].Action, ActionSpendRejected)
		}
	})

	t.Run("disabled list", func(t *testing.T) {
		rec := &captureRecorder{}
		ext := New(rec, WithDisabledActions(ActionSpendGranted))
		ctx := context.Background()

		_ = ext.OnSpendGranted(ctx, &entry.Entry{})
		_ = ext.OnSpendRejected(ctx, "acct_x", 1, 0)

		if len(rec.events) != 1 {
			t.Fatalf("events: got %d, want 1", len(rec.events))
		}
		if rec.events[0].Action != ActionSpendRejected {
			t.Errorf("action: got %q, want %q", rec.events[0].Action, ActionSpendRejected)
		}
	})
}
