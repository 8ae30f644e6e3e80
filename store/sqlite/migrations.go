package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the n1c store (SQLite).
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
    balance    INTEGER NOT NULL DEFAULT 0,
    currency   TEXT NOT NULL DEFAULT 'n1c',
    history    TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
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
    seq        INTEGER NOT NULL,
    kind       TEXT NOT NULL DEFAULT 'transfer',
    sender     TEXT NOT NULL,
    receiver   TEXT NOT NULL,
    amount     INTEGER NOT NULL CHECK (amount > 0),
    fee        INTEGER NOT NULL DEFAULT 0 CHECK (fee >= 0),
    tax        INTEGER NOT NULL DEFAULT 0 CHECK (tax >= 0),
    currency   TEXT NOT NULL DEFAULT 'n1c',
    anchor_id  TEXT NOT NULL DEFAULT '',
    timestamp  TEXT NOT NULL,
    signature  BLOB NOT NULL
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
    spread     TEXT NOT NULL,
    tax_rate   TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
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
