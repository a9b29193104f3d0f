package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountCreated = "account.created"

	// Subscription actions
	ActionSubscriptionUpserted = "subscription.upserted"

	// Cycle actions
	ActionCycleOpened = "cycle.opened"

	// Spend actions
	ActionSpendGranted   = "spend.granted"
	ActionSpendRejected  = "spend.rejected"
	ActionRefundCredited = "refund.credited"

	// Production actions
	ActionProductionCompleted = "production.completed"
	ActionMulliganRedeemed    = "mulligan.redeemed"

	// Balance actions
	ActionBalanceDegraded = "balance.degraded"
)

// Resource constants for audit events.
const (
	ResourceAccount      = "account"
	ResourceSubscription = "subscription"
	ResourceCycle        = "cycle"
	ResourceEntry        = "entry"
	ResourceProduction   = "production"
	ResourceBalance      = "balance"
)

// Category constants for audit events.
const (
	CategoryLedger     = "ledger"
	CategorySpend      = "spend"
	CategoryProduction = "production"
	CategoryBilling    = "billing"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
