package extension

import (
	"time"

	tokenledger "github.com/BarriosA2I/tokenledger"
	"github.com/BarriosA2I/tokenledger/plugin"
	"github.com/BarriosA2I/tokenledger/remote"
	"github.com/BarriosA2I/tokenledger/store"
)

// Option configures the token ledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithRemoteClient sets the authoritative balance client. It takes
// precedence over the configured RemoteBaseURL.
func WithRemoteClient(c remote.Client) Option {
	return func(e *Extension) {
		e.remote = c
	}
}

// WithLedgerOption passes a tokenledger.Option through to the underlying engine.
func WithLedgerOption(opt tokenledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, tokenledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRemoteBaseURL points the reconciler at the authoritative billing backend.
func WithRemoteBaseURL(u string) Option {
	return func(e *Extension) { e.config.RemoteBaseURL = u }
}

// WithRemoteTimeout bounds a single authoritative balance lookup.
func WithRemoteTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.RemoteTimeout = d }
}

// WithReserveTimeout bounds a single guarded spend attempt.
func WithReserveTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.ReserveTimeout = d }
}

// WithMaxRetries sets how many times contended spends are retried.
func WithMaxRetries(n int) Option {
	return func(e *Extension) { e.config.MaxRetries = n }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
