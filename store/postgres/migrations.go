package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the tokenledger store (PostgreSQL).
var Migrations = migrate.NewGroup("tokenledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_lab_accounts",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lab_accounts (
    id          TEXT PRIMARY KEY,
    owner_id    TEXT NOT NULL DEFAULT '',
    billing_key TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL DEFAULT '',
    metadata    JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_lab_accounts_owner ON lab_accounts (owner_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lab_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_lab_subscriptions",
			Version: "20250301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lab_subscriptions (
    id                   TEXT PRIMARY KEY,
    account_id           TEXT NOT NULL DEFAULT '',
    tier                 TEXT NOT NULL DEFAULT '',
    interval             TEXT NOT NULL DEFAULT 'monthly',
    monthly_tokens       BIGINT NOT NULL DEFAULT 0,
    status               TEXT NOT NULL DEFAULT 'active',
    current_period_start TIMESTAMPTZ NOT NULL DEFAULT now(),
    current_period_end   TIMESTAMPTZ NOT NULL DEFAULT now(),
    canceled_at          TIMESTAMPTZ,
    metadata             JSONB NOT NULL DEFAULT '{}',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_lab_subs_account ON lab_subscriptions (account_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lab_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_lab_cycles",
			Version: "20250301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lab_cycles (
    id               TEXT PRIMARY KEY,
    account_id       TEXT NOT NULL DEFAULT '',
    subscription_id  TEXT NOT NULL DEFAULT '',
    cycle_number     INTEGER NOT NULL DEFAULT 0,
    tokens_allocated BIGINT NOT NULL DEFAULT 0,
    tokens_used      BIGINT NOT NULL DEFAULT 0,
    period_start     TIMESTAMPTZ NOT NULL DEFAULT now(),
    period_end       TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT lab_cycles_no_overspend CHECK (tokens_used >= 0 AND tokens_used <= tokens_allocated)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_lab_cycles_account_number ON lab_cycles (account_id, cycle_number);
CREATE INDEX IF NOT EXISTS idx_lab_cycles_account_period ON lab_cycles (account_id, period_start, period_end);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lab_cycles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_lab_entries",
			Version: "20250301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lab_entries (
    id                    TEXT PRIMARY KEY,
    account_id            TEXT NOT NULL DEFAULT '',
    cycle_id              TEXT NOT NULL DEFAULT '',
    delta                 BIGINT NOT NULL DEFAULT 0,
    balance_after         BIGINT NOT NULL DEFAULT 0,
    reason                TEXT NOT NULL DEFAULT '',
    related_production_id TEXT NOT NULL DEFAULT '',
    idempotency_key       TEXT NOT NULL DEFAULT '',
    description           TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_lab_entries_account ON lab_entries (account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_lab_entries_cycle ON lab_entries (cycle_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_lab_entries_idempotency ON lab_entries (idempotency_key) WHERE idempotency_key != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lab_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_lab_productions",
			Version: "20250301000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lab_productions (
    id              TEXT PRIMARY KEY,
    account_id      TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL DEFAULT '',
    script          TEXT NOT NULL DEFAULT '',
    format          TEXT NOT NULL DEFAULT '',
    duration_secs   INTEGER NOT NULL DEFAULT 0,
    priority        TEXT NOT NULL DEFAULT 'standard',
    tokens_required BIGINT NOT NULL DEFAULT 0,
    status          TEXT NOT NULL DEFAULT 'pending',
    mulligan_token  TEXT NOT NULL DEFAULT '',
    mulligan_used   BOOLEAN NOT NULL DEFAULT FALSE,
    original_id     TEXT NOT NULL DEFAULT '',
    queued_at       TIMESTAMPTZ,
    completed_at    TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_lab_productions_account ON lab_productions (account_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_lab_productions_mulligan ON lab_productions (mulligan_token) WHERE mulligan_token != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lab_productions`)
				return err
			},
		},
	)
}
