package production

import (
	"time"

	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/types"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

type Priority string

const (
	PriorityStandard  Priority = "standard"
	PriorityExpedited Priority = "expedited"
	PriorityRush      Priority = "rush"
)

// Production is a unit of billable work. The record is created when the
// token guard admits a start request; the pipeline collaborator moves
// it through its statuses and calls back on completion or failure.
//
// MulliganToken is issued exactly once, when the production reaches
// completed. MulliganUsed flips false→true exactly once, atomically
// with redemption (compare-and-swap in the store).
type Production struct {
	types.Entity
	ID        id.ProductionID `json:"id"`
	AccountID id.AccountID    `json:"account_id"`

	Title        string   `json:"title"`
	Script       string   `json:"script,omitempty"`
	Format       string   `json:"format,omitempty"`
	DurationSecs int      `json:"duration_secs,omitempty"`
	Priority     Priority `json:"priority,omitempty"`

	TokensRequired int64  `json:"tokens_required"`
	Status         Status `json:"status"`

	MulliganToken string `json:"-"` // single-use secret, never serialized
	MulliganUsed  bool   `json:"mulligan_used"`

	// OriginalID links a mulligan replacement back to the production
	// it redoes. Nil for first-run productions.
	OriginalID id.ProductionID `json:"original_id,omitempty"`

	QueuedAt    *time.Time `json:"queued_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Spec carries the caller-supplied fields for a new production.
type Spec struct {
	Title          string
	Script         string
	Format         string
	DurationSecs   int
	Priority       Priority
	TokensRequired int64
}

// Terminal reports whether the production has reached a final status.
func (p *Production) Terminal() bool {
	switch p.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// MulliganAvailable reports whether the production's free redo can
// still be redeemed.
func (p *Production) MulliganAvailable() bool {
	return p.Status == StatusCompleted && p.MulliganToken != "" && !p.MulliganUsed
}
