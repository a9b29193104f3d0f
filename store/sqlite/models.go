package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/BarriosA2I/tokenledger/account"
	"github.com/BarriosA2I/tokenledger/cycle"
	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
	"github.com/BarriosA2I/tokenledger/subscription"
	"github.com/BarriosA2I/tokenledger/types"
)

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:lab_accounts"`

	ID         string            `grove:"id,pk"`
	OwnerID    string            `grove:"owner_id"`
	BillingKey string            `grove:"billing_key"`
	Name       string            `grove:"name"`
	Metadata   map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt  time.Time         `grove:"created_at"`
	UpdatedAt  time.Time         `grove:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:         a.ID.String(),
		OwnerID:    a.OwnerID,
		BillingKey: a.BillingKey,
		Name:       a.Name,
		Metadata:   a.Metadata,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}

	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         accountID,
		OwnerID:    m.OwnerID,
		BillingKey: m.BillingKey,
		Name:       m.Name,
		Metadata:   m.Metadata,
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:lab_subscriptions"`

	ID                 string            `grove:"id,pk"`
	AccountID          string            `grove:"account_id"`
	Tier               string            `grove:"tier"`
	Interval           string            `grove:"interval"`
	MonthlyTokens      int64             `grove:"monthly_tokens"`
	Status             string            `grove:"status"`
	CurrentPeriodStart time.Time         `grove:"current_period_start"`
	CurrentPeriodEnd   time.Time         `grove:"current_period_end"`
	CanceledAt         *time.Time        `grove:"canceled_at"`
	Metadata           map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt          time.Time         `grove:"created_at"`
	UpdatedAt          time.Time         `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                 s.ID.String(),
		AccountID:          s.AccountID.String(),
		Tier:               s.Tier,
		Interval:           string(s.Interval),
		MonthlyTokens:      s.MonthlyTokens,
		Status:             string(s.Status),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CanceledAt:         s.CanceledAt,
		Metadata:           s.Metadata,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 subID,
		AccountID:          accountID,
		Tier:               m.Tier,
		Interval:           subscription.Interval(m.Interval),
		MonthlyTokens:      m.MonthlyTokens,
		Status:             subscription.Status(m.Status),
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		CanceledAt:         m.CanceledAt,
		Metadata:           m.Metadata,
	}, nil
}

// ==================== Cycle models ====================

type cycleModel struct {
	grove.BaseModel `grove:"table:lab_cycles"`

	ID              string    `grove:"id,pk"`
	AccountID       string    `grove:"account_id"`
	SubscriptionID  string    `grove:"subscription_id"`
	Number          int       `grove:"cycle_number"`
	TokensAllocated int64     `grove:"tokens_allocated"`
	TokensUsed      int64     `grove:"tokens_used"`
	PeriodStart     time.Time `grove:"period_start"`
	PeriodEnd       time.Time `grove:"period_end"`
	CreatedAt       time.Time `grove:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"`
}

func toCycleModel(c *cycle.Cycle) *cycleModel {
	return &cycleModel{
		ID:              c.ID.String(),
		AccountID:       c.AccountID.String(),
		SubscriptionID:  c.SubscriptionID.String(),
		Number:          c.Number,
		TokensAllocated: c.TokensAllocated,
		TokensUsed:      c.TokensUsed,
		PeriodStart:     c.PeriodStart,
		PeriodEnd:       c.PeriodEnd,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromCycleModel(m *cycleModel) (*cycle.Cycle, error) {
	cycleID, err := id.ParseCycleID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}

	var subID id.SubscriptionID
	if m.SubscriptionID != "" {
		subID, err = id.ParseSubscriptionID(m.SubscriptionID)
		if err != nil {
			return nil, err
		}
	}

	return &cycle.Cycle{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              cycleID,
		AccountID:       accountID,
		SubscriptionID:  subID,
		Number:          m.Number,
		TokensAllocated: m.TokensAllocated,
		TokensUsed:      m.TokensUsed,
		PeriodStart:     m.PeriodStart,
		PeriodEnd:       m.PeriodEnd,
	}, nil
}

// ==================== Ledger entry models ====================

type entryModel struct {
	grove.BaseModel `grove:"table:lab_entries"`

	ID                  string    `grove:"id,pk"`
	AccountID           string    `grove:"account_id"`
	CycleID             string    `grove:"cycle_id"`
	Delta               int64     `grove:"delta"`
	BalanceAfter        int64     `grove:"balance_after"`
	Reason              string    `grove:"reason"`
	RelatedProductionID string    `grove:"related_production_id"`
	IdempotencyKey      string    `grove:"idempotency_key"`
	Description         string    `grove:"description"`
	CreatedAt           time.Time `grove:"created_at"`
}

func toEntryModel(e *entry.Entry) *entryModel {
	return &entryModel{
		ID:                  e.ID.String(),
		AccountID:           e.AccountID.String(),
		CycleID:             e.CycleID.String(),
		Delta:               e.Delta,
		BalanceAfter:        e.BalanceAfter,
		Reason:              string(e.Reason),
		RelatedProductionID: e.RelatedProductionID.String(),
		IdempotencyKey:      e.IdempotencyKey,
		Description:         e.Description,
		CreatedAt:           e.CreatedAt,
	}
}

func fromEntryModel(m *entryModel) (*entry.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	cycleID, err := id.ParseCycleID(m.CycleID)
	if err != nil {
		return nil, err
	}

	var prodID id.ProductionID
	if m.RelatedProductionID != "" {
		prodID, err = id.ParseProductionID(m.RelatedProductionID)
		if err != nil {
			return nil, err
		}
	}

	return &entry.Entry{
		ID:                  entryID,
		AccountID:           accountID,
		CycleID:             cycleID,
		Delta:               m.Delta,
		BalanceAfter:        m.BalanceAfter,
		Reason:              entry.Reason(m.Reason),
		RelatedProductionID: prodID,
		IdempotencyKey:      m.IdempotencyKey,
		Description:         m.Description,
		CreatedAt:           m.CreatedAt,
	}, nil
}

// ==================== Production models ====================

type productionModel struct {
	grove.BaseModel `grove:"table:lab_productions"`

	ID             string     `grove:"id,pk"`
	AccountID      string     `grove:"account_id"`
	Title          string     `grove:"title"`
	Script         string     `grove:"script"`
	Format         string     `grove:"format"`
	DurationSecs   int        `grove:"duration_secs"`
	Priority       string     `grove:"priority"`
	TokensRequired int64      `grove:"tokens_required"`
	Status         string     `grove:"status"`
	MulliganToken  string     `grove:"mulligan_token"`
	MulliganUsed   bool       `grove:"mulligan_used"`
	OriginalID     string     `grove:"original_id"`
	QueuedAt       *time.Time `grove:"queued_at"`
	CompletedAt    *time.Time `grove:"completed_at"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toProductionModel(p *production.Production) *productionModel {
	return &productionModel{
		ID:             p.ID.String(),
		AccountID:      p.AccountID.String(),
		Title:          p.Title,
		Script:         p.Script,
		Format:         p.Format,
		DurationSecs:   p.DurationSecs,
		Priority:       string(p.Priority),
		TokensRequired: p.TokensRequired,
		Status:         string(p.Status),
		MulliganToken:  p.MulliganToken,
		MulliganUsed:   p.MulliganUsed,
		OriginalID:     p.OriginalID.String(),
		QueuedAt:       p.QueuedAt,
		CompletedAt:    p.CompletedAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromProductionModel(m *productionModel) (*production.Production, error) {
	prodID, err := id.ParseProductionID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}

	var originalID id.ProductionID
	if m.OriginalID != "" {
		originalID, err = id.ParseProductionID(m.OriginalID)
		if err != nil {
			return nil, err
		}
	}

	return &production.Production{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             prodID,
		AccountID:      accountID,
		Title:          m.Title,
		Script:         m.Script,
		Format:         m.Format,
		DurationSecs:   m.DurationSecs,
		Priority:       production.Priority(m.Priority),
		TokensRequired: m.TokensRequired,
		Status:         production.Status(m.Status),
		MulliganToken:  m.MulliganToken,
		MulliganUsed:   m.MulliganUsed,
		OriginalID:     originalID,
		QueuedAt:       m.QueuedAt,
		CompletedAt:    m.CompletedAt,
	}, nil
}
