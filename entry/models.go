// Package entry defines the immutable token ledger entry: one audit
// record per balance-affecting event.
package entry

import (
	"time"

	"github.com/BarriosA2I/tokenledger/id"
)

// Reason classifies why a ledger entry was written.
type Reason string

const (
	ReasonProductionStart Reason = "production_start"
	ReasonRefund          Reason = "refund"
	ReasonMulliganGrant   Reason = "mulligan_grant"
	ReasonAdjustment      Reason = "adjustment"
)

// Entry is an immutable fact about one balance change. Negative deltas
// are spends, positive deltas are credits/refunds; a mulligan grant is
// recorded with a zero delta purely for audit visibility.
//
// BalanceAfter is a point-in-time checkpoint taken at the instant of
// the write, not a cached value: summing deltas over a cycle's entries
// in creation order must reconstruct the cycle's TokensUsed, and each
// BalanceAfter must equal allocated minus used at that instant. Entries
// are never updated or deleted.
type Entry struct {
	ID                  id.EntryID      `json:"id"`
	AccountID           id.AccountID    `json:"account_id"`
	CycleID             id.CycleID      `json:"cycle_id"`
	Delta               int64           `json:"delta"`
	BalanceAfter        int64           `json:"balance_after"`
	Reason              Reason          `json:"reason"`
	RelatedProductionID id.ProductionID `json:"related_production_id,omitempty"`
	IdempotencyKey      string          `json:"idempotency_key,omitempty"`
	Description         string          `json:"description,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// IsSpend reports whether the entry records a token deduction.
func (e *Entry) IsSpend() bool { return e.Delta < 0 }

// ListOpts filters ledger entry listings for audit lookups.
type ListOpts struct {
	CycleID id.CycleID
	Reason  Reason
	Limit   int
	Offset  int
}
