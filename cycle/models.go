// Package cycle defines the bounded billing window against which token
// spends are authorized.
package cycle

import (
	"time"

	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/types"
)

// Cycle is a bounded time window [PeriodStart, PeriodEnd) with an
// immutable token allocation snapshot and a derived usage counter.
//
// TokensAllocated is copied from the subscription quota when the cycle
// opens and never changes afterwards: a later subscription change must
// not retroactively alter a cycle already opened. TokensUsed is only
// ever moved by the store's conditional-update primitives, never
// assigned from a value computed outside the store.
//
// At most one cycle per account may contain "now"; Number increases
// monotonically per account and is covered by a unique constraint on
// (account_id, cycle_number), which is what makes lazy creation safe
// under concurrent callers.
type Cycle struct {
	types.Entity
	ID              id.CycleID        `json:"id"`
	AccountID       id.AccountID      `json:"account_id"`
	SubscriptionID  id.SubscriptionID `json:"subscription_id,omitempty"`
	Number          int               `json:"cycle_number"`
	TokensAllocated int64             `json:"tokens_allocated"`
	TokensUsed      int64             `json:"tokens_used"`
	PeriodStart     time.Time         `json:"period_start"`
	PeriodEnd       time.Time         `json:"period_end"`
}

// Balance returns the tokens still available in this cycle.
func (c *Cycle) Balance() int64 {
	return c.TokensAllocated - c.TokensUsed
}

// Contains reports whether t falls inside the cycle window.
func (c *Cycle) Contains(t time.Time) bool {
	return !t.Before(c.PeriodStart) && t.Before(c.PeriodEnd)
}

// Expired reports whether the cycle window has closed as of t.
func (c *Cycle) Expired(t time.Time) bool {
	return !t.Before(c.PeriodEnd)
}
