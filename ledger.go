package tokenledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/BarriosA2I/tokenledger/account"
	"github.com/BarriosA2I/tokenledger/id"
	"github.com/BarriosA2I/tokenledger/plugin"
	"github.com/BarriosA2I/tokenledger/remote"
	"github.com/BarriosA2I/tokenledger/store"
	"github.com/BarriosA2I/tokenledger/subscription"
	"github.com/BarriosA2I/tokenledger/types"
)

// Ledger is the token ledger and guarded-consumption engine.
//
// All mutation entry points (Reserve, Refund, RedeemMulligan and the
// production lifecycle callbacks) serialize per account: the engine
// holds an account-scoped lock for the duration of the operation so
// ledger entries for an account are totally ordered by commit time and
// every BalanceAfter checkpoint is consistent with that order. The
// store's conditional-update primitives are the second line of defense
// for multi-process deployments sharing one database.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	locks   accountLocks

	// Remote authoritative balance service (display path only).
	remote        remote.Client
	remoteTimeout time.Duration

	// Configuration
	reserveTimeout time.Duration
	maxRetries     int
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:          s,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		remoteTimeout:  remote.DefaultTimeout,
		reserveTimeout: 10 * time.Second,
		maxRetries:     3,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithRemoteBalance sets the authoritative balance client. Without it,
// GetBalance always answers from local cycle arithmetic.
func WithRemoteBalance(c remote.Client) Option {
	return func(l *Ledger) {
		l.remote = c
	}
}

// WithRemoteTimeout bounds a single authoritative balance lookup.
func WithRemoteTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.remoteTimeout = d
	}
}

// WithReserveTimeout bounds a reserve transaction. A caller that times
// out must retry with the same idempotency key.
func WithReserveTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.reserveTimeout = d
	}
}

// WithMaxRetries sets how many times contended transactions are
// retried before surfacing ErrConflict.
func WithMaxRetries(n int) Option {
	return func(l *Ledger) {
		l.maxRetries = n
	}
}

// Start migrates the store and initializes plugins.
// The engine owns no background workers: cycle rollover happens lazily
// on first access, inside the request that needs it.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("tokenledger started",
		"reserve_timeout", l.reserveTimeout,
		"remote_timeout", l.remoteTimeout,
		"remote_configured", l.remote != nil,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Account Management
// ──────────────────────────────────────────────────

// CreateAccount registers a new tenant account.
func (l *Ledger) CreateAccount(ctx context.Context, a *account.Account) error {
	if a.OwnerID == "" {
		return ValidationError{Field: "owner_id", Message: "must not be empty"}
	}
	if a.ID.IsNil() {
		a.ID = id.NewAccountID()
	}
	a.Entity = types.NewEntity()

	if err := l.store.CreateAccount(ctx, a); err != nil {
		return err
	}

	l.plugins.EmitAccountCreated(ctx, a)
	return nil
}

// GetAccount retrieves an account by ID.
func (l *Ledger) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return l.store.GetAccount(ctx, accountID)
}

// GetAccountByOwner resolves the account owned by an opaque external
// identity. The identity collaborator verifies the owner; this engine
// only maps it.
func (l *Ledger) GetAccountByOwner(ctx context.Context, ownerID string) (*account.Account, error) {
	return l.store.GetAccountByOwner(ctx, ownerID)
}

// ──────────────────────────────────────────────────
// Subscription Management
// ──────────────────────────────────────────────────

// UpsertSubscription records an externally validated entitlement for
// an account. Cycles already opened keep their allocation snapshot;
// the new quota applies from the next cycle.
func (l *Ledger) UpsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	if sub.AccountID.IsNil() {
		return ValidationError{Field: "account_id", Message: "must not be empty"}
	}
	if sub.MonthlyTokens < 0 {
		return ValidationError{Field: "monthly_tokens", Message: "must not be negative"}
	}
	if sub.ID.IsNil() {
		sub.ID = id.NewSubscriptionID()
	}
	if sub.Interval == "" {
		sub.Interval = subscription.IntervalMonthly
	}
	sub.Entity = types.NewEntity()

	if sub.CurrentPeriodStart.IsZero() {
		sub.CurrentPeriodStart = time.Now().UTC()
		sub.CurrentPeriodEnd = sub.Interval.AddInterval(sub.CurrentPeriodStart)
	}

	if err := l.store.UpsertSubscription(ctx, sub); err != nil {
		return err
	}

	l.plugins.EmitSubscriptionUpserted(ctx, sub)
	return nil
}

// GetSubscription retrieves the subscription for an account.
func (l *Ledger) GetSubscription(ctx context.Context, accountID id.AccountID) (*subscription.Subscription, error) {
	return l.store.GetSubscription(ctx, accountID)
}
