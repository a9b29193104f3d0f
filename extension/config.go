package extension

import "time"

// Config holds the token ledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tokenledger" or "tokenledger" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// RemoteBaseURL points at the authoritative billing backend. When set,
	// balance reconciliation queries it; when empty, balances are served
	// from local ledger data only.
	RemoteBaseURL string `json:"remote_base_url" mapstructure:"remote_base_url" yaml:"remote_base_url"`

	// RemoteTimeout bounds a single authoritative balance lookup before
	// the reconciler falls back to local data (default: 3s).
	RemoteTimeout time.Duration `json:"remote_timeout" mapstructure:"remote_timeout" yaml:"remote_timeout"`

	// ReserveTimeout bounds a single guarded spend attempt, queueing
	// included (default: 10s).
	ReserveTimeout time.Duration `json:"reserve_timeout" mapstructure:"reserve_timeout" yaml:"reserve_timeout"`

	// MaxRetries is how many times contended spends are retried before
	// surfacing a conflict (default: 3).
	MaxRetries int `json:"max_retries" mapstructure:"max_retries" yaml:"max_retries"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RemoteTimeout:  3 * time.Second,
		ReserveTimeout: 10 * time.Second,
		MaxRetries:     3,
	}
}
