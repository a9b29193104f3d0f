// Package plugin provides an extensible plugin system for Ledger.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Account and subscription hooks
// ──────────────────────────────────────────────────

// OnAccountCreated is called when a new account is created.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, acct interface{}) error
}

// OnSubscriptionUpserted is called when a subscription is created or
// its tier changes.
type OnSubscriptionUpserted interface {
	Plugin
	OnSubscriptionUpserted(ctx context.Context, sub interface{}) error
}

// ──────────────────────────────────────────────────
// Cycle hooks
// ──────────────────────────────────────────────────

// OnCycleOpened is called when a new billing cycle is opened and its
// token allocation snapshotted.
type OnCycleOpened interface {
	Plugin
	OnCycleOpened(ctx context.Context, cyc interface{}) error
}

// ──────────────────────────────────────────────────
// Spend hooks
// ──────────────────────────────────────────────────

// OnSpendGranted is called when the guard admits a spend. The argument
// is the committed ledger entry.
type OnSpendGranted interface {
	Plugin
	OnSpendGranted(ctx context.Context, e interface{}) error
}

// OnSpendRejected is called when the guard denies a spend for
// insufficient balance.
type OnSpendRejected interface {
	Plugin
	OnSpendRejected(ctx context.Context, accountID string, cost, balance int64) error
}

// OnRefunded is called when tokens are credited back. The argument is
// the committed ledger entry.
type OnRefunded interface {
	Plugin
	OnRefunded(ctx context.Context, e interface{}) error
}

// ──────────────────────────────────────────────────
// Production hooks
// ──────────────────────────────────────────────────

// OnProductionCompleted is called when a production reaches completed
// and its mulligan token has been issued.
type OnProductionCompleted interface {
	Plugin
	OnProductionCompleted(ctx context.Context, p interface{}) error
}

// OnMulliganRedeemed is called when a mulligan token is consumed and
// its replacement production queued.
type OnMulliganRedeemed interface {
	Plugin
	OnMulliganRedeemed(ctx context.Context, original, replacement interface{}) error
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnBalanceResolved is called after every balance resolution, with the
// source that answered ("authoritative", "local", "local_fallback").
type OnBalanceResolved interface {
	Plugin
	OnBalanceResolved(ctx context.Context, accountID string, balance int64, source string) error
}
