// Package guard defines the result types returned by the token guard.
package guard

import "github.com/BarriosA2I/tokenledger/id"

// RejectReason explains why a reserve was denied.
type RejectReason string

const (
	RejectInsufficientBalance RejectReason = "insufficient_balance"
	RejectNoActiveCycle       RejectReason = "no_active_cycle"
)

// Result is the outcome of a reserve or refund. Rejections are results,
// not errors: the spend path returns typed outcomes so the pipeline
// collaborator never has to unwind from a thrown failure.
type Result struct {
	Granted      bool         `json:"granted"`
	BalanceAfter int64        `json:"balance_after"`
	Reason       RejectReason `json:"reason,omitempty"`
	EntryID      id.EntryID   `json:"entry_id,omitempty"`
	CycleID      id.CycleID   `json:"cycle_id,omitempty"`

	// Replayed is true when an idempotency key matched a previously
	// committed entry and the original outcome was returned unchanged.
	Replayed bool `json:"replayed,omitempty"`
}
