package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the n1c store.
var Migrations = migrate.NewGroup("n1c")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_n1c_accounts",
			Version: "20240501000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS n1c_accounts (
    address    TEXT PRIMARY KEY,
    kind       TEXT NOT NULL DEFAULT 'standard',
    balance    BIGINT NOT NULL DEFAULT 0,
    currency   TEXT NOT NULL DEFAULT 'n1c',
    history    JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_n1c_accounts_kind ON n1c_accounts (kind);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS n1c_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_n1c_transactions",
			Version: "20240501000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS n1c_transactions (
    id         TEXT PRIMARY KEY,
    seq        BIGINT NOT NULL,
    kind       TEXT NOT NULL DEFAULT 'transfer',
    sender     TEXT NOT NULL,
    receiver   TEXT NOT NULL,
    amount     BIGINT NOT NULL CHECK (amount > 0),
    fee        BIGINT NOT NULL DEFAULT 0 CHECK (fee >= 0),
    tax        BIGINT NOT NULL DEFAULT 0 CHECK (tax >= 0),
    currency   TEXT NOT NULL DEFAULT 'n1c',
    anchor_id  TEXT NOT NULL DEFAULT '',
    timestamp  TIMESTAMPTZ NOT NULL,
    signature  BYTEA NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_n1c_transactions_seq ON n1c_transactions (seq);
CREATE INDEX IF NOT EXISTS idx_n1c_transactions_sender ON n1c_transactions (sender, seq);
CREATE INDEX IF NOT EXISTS idx_n1c_transactions_receiver ON n1c_transactions (receiver, seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS n1c_transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_n1c_anchors",
			Version: "20240501000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS n1c_anchors (
    id         TEXT PRIMARY KEY,
    spread     NUMERIC NOT NULL CHECK (spread >= 0 AND spread <= 7),
    tax_rate   NUMERIC NOT NULL CHECK (tax_rate >= 0 AND tax_rate <= 100),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS n1c_anchors`)
				return err
			},
		},
	)
}
