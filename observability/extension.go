// Package observability provides a metrics extension for Ledger that records
// lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated       = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionUpserted = (*MetricsExtension)(nil)
	_ plugin.OnCycleOpened          = (*MetricsExtension)(nil)
	_ plugin.OnSpendGranted         = (*MetricsExtension)(nil)
	_ plugin.OnSpendRejected        = (*MetricsExtension)(nil)
	_ plugin.OnRefunded             = (*MetricsExtension)(nil)
	_ plugin.OnProductionCompleted  = (*MetricsExtension)(nil)
	_ plugin.OnMulliganRedeemed     = (*MetricsExtension)(nil)
	_ plugin.OnBalanceResolved      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Ledger plugin to automatically track spend metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Account metrics
	AccountCreated Counter

	// Subscription metrics
	SubscriptionUpserted Counter

	// Cycle metrics
	CyclesOpened    Counter
	CycleAllocation Histogram

	// Spend metrics
	SpendsGranted  Counter
	SpendsRejected Counter
	SpendsReplayed Counter
	Refunds        Counter
	TokensSpent    Counter
	TokensRefunded Counter

	// Production metrics
	ProductionsCompleted Counter
	MulligansRedeemed    Counter

	// Balance metrics
	BalanceAuthoritative Counter
	BalanceLocal         Counter
	BalanceFallback      Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Account metrics
		AccountCreated: factory.Counter("tokenledger.account.created"),

		// Subscription metrics
		SubscriptionUpserted: factory.Counter("tokenledger.subscription.upserted"),

		// Cycle metrics
		CyclesOpened:    factory.Counter("tokenledger.cycle.opened"),
		CycleAllocation: factory.Histogram("tokenledger.cycle.allocation"),

		// Spend metrics
		SpendsGranted:  factory.Counter("tokenledger.spend.granted"),
		SpendsRejected: factory.Counter("tokenledger.spend.rejected"),
		SpendsReplayed: factory.Counter("tokenledger.spend.replayed"),
		Refunds:        factory.Counter("tokenledger.refund.credited"),
		TokensSpent:    factory.Counter("tokenledger.tokens.spent"),
		TokensRefunded: factory.Counter("tokenledger.tokens.refunded"),

		// Production metrics
		ProductionsCompleted: factory.Counter("tokenledger.production.completed"),
		MulligansRedeemed:    factory.Counter("tokenledger.mulligan.redeemed"),

		// Balance metrics
		BalanceAuthoritative: factory.Counter("tokenledger.balance.authoritative"),
		BalanceLocal:         factory.Counter("tokenledger.balance.local"),
		BalanceFallback:      factory.Counter("tokenledger.balance.fallback"),

		// Error metrics
		StoreErrors:  factory.Counter("tokenledger.store.errors"),
		PluginErrors: factory.Counter("tokenledger.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Account and subscription hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ interface{}) error {
	m.AccountCreated.Inc()
	return nil
}

// OnSubscriptionUpserted implements plugin.OnSubscriptionUpserted.
func (m *MetricsExtension) OnSubscriptionUpserted(_ context.Context, _ interface{}) error {
	m.SubscriptionUpserted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Cycle hooks
// ──────────────────────────────────────────────────

// OnCycleOpened implements plugin.OnCycleOpened.
func (m *MetricsExtension) OnCycleOpened(_ context.Context, v interface{}) error {
	m.CyclesOpened.Inc()
	type allocated interface{ Balance() int64 }
	if c, ok := v.(allocated); ok {
		m.CycleAllocation.Observe(float64(c.Balance()))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Spend hooks
// ──────────────────────────────────────────────────

// OnSpendGranted implements plugin.OnSpendGranted.
func (m *MetricsExtension) OnSpendGranted(_ context.Context, v interface{}) error {
	m.SpendsGranted.Inc()
	if e, ok := v.(*entry.Entry); ok && e.Delta < 0 {
		m.TokensSpent.Add(float64(-e.Delta))
	}
	return nil
}

// OnSpendRejected implements plugin.OnSpendRejected.
func (m *MetricsExtension) OnSpendRejected(_ context.Context, _ string, _, _ int64) error {
	m.SpendsRejected.Inc()
	return nil
}

// OnRefunded implements plugin.OnRefunded.
func (m *MetricsExtension) OnRefunded(_ context.Context, v interface{}) error {
	m.Refunds.Inc()
	if e, ok := v.(*entry.Entry); ok && e.Delta > 0 {
		m.TokensRefunded.Add(float64(e.Delta))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Production hooks
// ──────────────────────────────────────────────────

// OnProductionCompleted implements plugin.OnProductionCompleted.
func (m *MetricsExtension) OnProductionCompleted(_ context.Context, _ interface{}) error {
	m.ProductionsCompleted.Inc()
	return nil
}

// OnMulliganRedeemed implements plugin.OnMulliganRedeemed.
func (m *MetricsExtension) OnMulliganRedeemed(_ context.Context, _, _ interface{}) error {
	m.MulligansRedeemed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnBalanceResolved implements plugin.OnBalanceResolved.
func (m *MetricsExtension) OnBalanceResolved(_ context.Context, _ string, _ int64, source string) error {
	switch source {
	case "authoritative":
		m.BalanceAuthoritative.Inc()
	case "local_fallback":
		m.BalanceFallback.Inc()
	default:
		m.BalanceLocal.Inc()
	}
	return nil
}
