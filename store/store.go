package store

import (
	"context"
	"time"

	"github.com/BarriosA2I/tokenledger/account"
	"github.com/BarriosA2I/tokenledger/cycle"
	"github.com/BarriosA2I/tokenledger/entry"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/production"
	"github.com/BarriosA2I/tokenledger/subscription"
)

// Store is the unified storage interface for all tokenledger entities.
// Instead of embedding sub-interfaces, all methods are declared
// explicitly to avoid naming conflicts.
//
// The three mutation primitives with atomicity obligations are
// ReserveTokens, ReleaseTokens and ConsumeMulligan: implementations
// must make them single atomic state transitions (conditional update,
// compare-and-swap) so that no interleaving of concurrent callers can
// lose an update or double-grant. AppendEntry must reject a duplicate
// idempotency key with ErrDuplicateEntry. CreateCycle must reject a
// duplicate (account, number) pair with ErrCycleExists.
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	GetAccountByOwner(ctx context.Context, ownerID string) (*account.Account, error)
	UpdateAccount(ctx context.Context, a *account.Account) error

	// Subscription methods
	UpsertSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, accountID id.AccountID) (*subscription.Subscription, error)

	// Cycle methods
	CreateCycle(ctx context.Context, c *cycle.Cycle) error
	GetCycle(ctx context.Context, cycleID id.CycleID) (*cycle.Cycle, error)
	GetActiveCycle(ctx context.Context, accountID id.AccountID, at time.Time) (*cycle.Cycle, error)
	GetLatestCycle(ctx context.Context, accountID id.AccountID) (*cycle.Cycle, error)
	ListCycles(ctx context.Context, accountID id.AccountID) ([]*cycle.Cycle, error)

	// ReserveTokens atomically increments the cycle's used counter by
	// cost if and only if the remaining balance covers it, returning
	// the balance after the increment. Returns ErrInsufficientBalance
	// (and changes nothing) otherwise.
	ReserveTokens(ctx context.Context, cycleID id.CycleID, cost int64) (int64, error)

	// ReleaseTokens atomically decrements the cycle's used counter by
	// amount, flooring at zero, returning the balance after.
	ReleaseTokens(ctx context.Context, cycleID id.CycleID, amount int64) (int64, error)

	// Ledger entry methods
	AppendEntry(ctx context.Context, e *entry.Entry) error
	GetEntryByKey(ctx context.Context, idempotencyKey string) (*entry.Entry, error)
	ListEntries(ctx context.Context, accountID id.AccountID, opts entry.ListOpts) ([]*entry.Entry, error)

	// Production methods
	CreateProduction(ctx context.Context, p *production.Production) error
	GetProduction(ctx context.Context, productionID id.ProductionID) (*production.Production, error)
	GetProductionByMulliganToken(ctx context.Context, token string) (*production.Production, error)
	UpdateProductionStatus(ctx context.Context, productionID id.ProductionID, status production.Status) error
	SetMulliganToken(ctx context.Context, productionID id.ProductionID, token string) error
	CountProductions(ctx context.Context, accountID id.AccountID) (int64, error)

	// ConsumeMulligan atomically flips mulligan_used false→true for
	// the production. Exactly one of N concurrent callers succeeds;
	// the rest get ErrMulliganAlreadyUsed.
	ConsumeMulligan(ctx context.Context, productionID id.ProductionID) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
