package subscription

import (
	"time"

	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/types"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// Interval is the billing interval for a subscription.
type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// Subscription describes an account's recurring entitlement: a tier
// label, a billing interval, and the token quota granted each cycle.
// It is written by the billing collaborator; this subsystem reads it
// only at cycle-creation time, so later changes never retroactively
// alter a cycle that has already opened.
type Subscription struct {
	types.Entity
	ID                 id.SubscriptionID `json:"id"`
	AccountID          id.AccountID      `json:"account_id"`
	Tier               string            `json:"tier"`
	Interval           Interval          `json:"interval"`
	MonthlyTokens      int64             `json:"monthly_tokens"`
	Status             Status            `json:"status"`
	CurrentPeriodStart time.Time         `json:"current_period_start"`
	CurrentPeriodEnd   time.Time         `json:"current_period_end"`
	CanceledAt         *time.Time        `json:"canceled_at,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// IsActive reports whether the subscription currently entitles the
// account to a token allocation.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// PeriodContains reports whether t falls inside the subscription's
// current billing period.
func (s *Subscription) PeriodContains(t time.Time) bool {
	return !s.CurrentPeriodStart.IsZero() && !s.CurrentPeriodEnd.IsZero() &&
		!t.Before(s.CurrentPeriodStart) && t.Before(s.CurrentPeriodEnd)
}

// AddInterval advances t by one billing interval.
func (i Interval) AddInterval(t time.Time) time.Time {
	if i == IntervalYearly {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

// Tier token allocations and production costs, as sold.
const (
	TokensStarter int64 = 8
	TokensCreator int64 = 18
	TokensGrowth  int64 = 32
	TokensScale   int64 = 64

	CostStandardVideo int64 = 1
	CostRushVideo     int64 = 2
	CostPremiumVideo  int64 = 3
)

// TierTokens maps tier labels to their monthly token quota.
// Unknown tiers get 0, which naturally rejects all spends.
var TierTokens = map[string]int64{
	"starter": TokensStarter,
	"creator": TokensCreator,
	"growth":  TokensGrowth,
	"scale":   TokensScale,
}

// TokensForTier returns the monthly quota for a tier label, 0 if unknown.
func TokensForTier(tier string) int64 {
	return TierTokens[tier]
}
