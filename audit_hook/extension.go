// Package audithook bridges Ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend
// on any particular audit system. Callers inject a RecorderFunc adapter
// that bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BarriosA2I/tokenledger/account"
	"github.com/BarriosA2I/tokenledger/cycle"
	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/plugin"
	"github.com/BarriosA2I/tokenledger/production"
	"github.com/BarriosA2I/tokenledger/subscription"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnAccountCreated       = (*Extension)(nil)
	_ plugin.OnSubscriptionUpserted = (*Extension)(nil)
	_ plugin.OnCycleOpened          = (*Extension)(nil)
	_ plugin.OnSpendGranted         = (*Extension)(nil)
	_ plugin.OnSpendRejected        = (*Extension)(nil)
	_ plugin.OnRefunded             = (*Extension)(nil)
	_ plugin.OnProductionCompleted  = (*Extension)(nil)
	_ plugin.OnMulliganRedeemed     = (*Extension)(nil)
	_ plugin.OnBalanceResolved      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Account and subscription hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (e *Extension) OnAccountCreated(ctx context.Context, v interface{}) error {
	var resourceID string
	if a, ok := v.(*account.Account); ok {
		resourceID = a.ID.String()
	}
	return e.record(ctx, ActionAccountCreated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, resourceID, CategoryLedger, nil,
		"event", "account_created",
	)
}

// OnSubscriptionUpserted implements plugin.OnSubscriptionUpserted.
func (e *Extension) OnSubscriptionUpserted(ctx context.Context, v interface{}) error {
	var resourceID, tier string
	if s, ok := v.(*subscription.Subscription); ok {
		resourceID = s.ID.String()
		tier = s.Tier
	}
	return e.record(ctx, ActionSubscriptionUpserted, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, resourceID, CategoryBilling, nil,
		"event", "subscription_upserted",
		"tier", tier,
	)
}

// ──────────────────────────────────────────────────
// Cycle hooks
// ──────────────────────────────────────────────────

// OnCycleOpened implements plugin.OnCycleOpened.
func (e *Extension) OnCycleOpened(ctx context.Context, v interface{}) error {
	var resourceID string
	var allocated int64
	if c, ok := v.(*cycle.Cycle); ok {
		resourceID = c.ID.String()
		allocated = c.TokensAllocated
	}
	return e.record(ctx, ActionCycleOpened, SeverityInfo, OutcomeSuccess,
		ResourceCycle, resourceID, CategoryLedger, nil,
		"event", "cycle_opened",
		"tokens_allocated", allocated,
	)
}

// ──────────────────────────────────────────────────
// Spend hooks
// ──────────────────────────────────────────────────

// OnSpendGranted implements plugin.OnSpendGranted.
func (e *Extension) OnSpendGranted(ctx context.Context, v interface{}) error {
	var resourceID, accountID string
	var delta, after int64
	if en, ok := v.(*entry.Entry); ok {
		resourceID = en.ID.String()
		accountID = en.AccountID.String()
		delta = en.Delta
		after = en.BalanceAfter
	}
	return e.record(ctx, ActionSpendGranted, SeverityInfo, OutcomeSuccess,
		ResourceEntry, resourceID, CategorySpend, nil,
		"account_id", accountID,
		"delta", delta,
		"balance_after", after,
	)
}

// OnSpendRejected implements plugin.OnSpendRejected.
func (e *Extension) OnSpendRejected(ctx context.Context, accountID string, cost, balance int64) error {
	return e.record(ctx, ActionSpendRejected, SeverityWarning, OutcomeFailure,
		ResourceBalance, accountID, CategorySpend, nil,
		"account_id", accountID,
		"cost", cost,
		"balance", balance,
	)
}

// OnRefunded implements plugin.OnRefunded.
func (e *Extension) OnRefunded(ctx context.Context, v interface{}) error {
	var resourceID, accountID string
	var delta int64
	if en, ok := v.(*entry.Entry); ok {
		resourceID = en.ID.String()
		accountID = en.AccountID.String()
		delta = en.Delta
	}
	return e.record(ctx, ActionRefundCredited, SeverityInfo, OutcomeSuccess,
		ResourceEntry, resourceID, CategorySpend, nil,
		"account_id", accountID,
		"delta", delta,
	)
}

// ──────────────────────────────────────────────────
// Production hooks
// ──────────────────────────────────────────────────

// OnProductionCompleted implements plugin.OnProductionCompleted.
func (e *Extension) OnProductionCompleted(ctx context.Context, v interface{}) error {
	var resourceID string
	if p, ok := v.(*production.Production); ok {
		resourceID = p.ID.String()
	}
	return e.record(ctx, ActionProductionCompleted, SeverityInfo, OutcomeSuccess,
		ResourceProduction, resourceID, CategoryProduction, nil,
		"event", "production_completed",
	)
}

// OnMulliganRedeemed implements plugin.OnMulliganRedeemed.
func (e *Extension) OnMulliganRedeemed(ctx context.Context, original, replacement interface{}) error {
	var originalID, replacementID string
	if p, ok := original.(*production.Production); ok {
		originalID = p.ID.String()
	}
	if p, ok := replacement.(*production.Production); ok {
		replacementID = p.ID.String()
	}
	return e.record(ctx, ActionMulliganRedeemed, SeverityInfo, OutcomeSuccess,
		ResourceProduction, originalID, CategoryProduction, nil,
		"original_id", originalID,
		"replacement_id", replacementID,
	)
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnBalanceResolved implements plugin.OnBalanceResolved.
// Only degraded resolutions are audited to reduce noise.
func (e *Extension) OnBalanceResolved(ctx context.Context, accountID string, balance int64, source string) error {
	if source != "local_fallback" {
		return nil
	}
	return e.record(ctx, ActionBalanceDegraded, SeverityWarning, OutcomePartial,
		ResourceBalance, accountID, CategoryLedger, nil,
		"account_id", accountID,
		"balance", balance,
		"source", source,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
