// Package balance defines the tagged balance result returned by the
// balance reconciler. The tag makes degraded answers distinguishable
// from authoritative ones instead of silently picking a source.
package balance

// Source identifies where a balance number came from.
type Source string

const (
	// SourceAuthoritative means the remote billing backend answered
	// within its timeout and its number was trusted.
	SourceAuthoritative Source = "authoritative"

	// SourceLocal means the remote was never consulted (no remote
	// client configured, or the account has no billing key yet) and
	// the number is local cycle arithmetic.
	SourceLocal Source = "local"

	// SourceLocalFallback means the remote was consulted and failed;
	// the number is local cycle arithmetic, degraded but available.
	SourceLocalFallback Source = "local_fallback"
)

// Result is a balance answer annotated with its provenance.
type Result struct {
	Balance   int64  `json:"balance"`
	Allocated int64  `json:"allocated"`
	Used      int64  `json:"used"`
	PlanType  string `json:"plan_type,omitempty"`
	Source    Source `json:"source"`
}

// Details is the expanded balance breakdown for account dashboards.
type Details struct {
	CurrentBalance    int64  `json:"current_balance"`
	LifetimeAllocated int64  `json:"lifetime_allocated"`
	LifetimeUsed      int64  `json:"lifetime_used"`
	Tier              string `json:"tier,omitempty"`
	MonthlyAllocation int64  `json:"monthly_allocation"`
	TotalProductions  int64  `json:"total_productions"`
}
