// Package plugin provides the hook system of the n1c ledger.
// Plugins implement any subset of the hook interfaces below; the registry
// discovers them at registration time and calls them after each event.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts. l is the *n1c.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Registration hooks
// ──────────────────────────────────────────────────

// OnAccountOpened is called after an account is opened.
type OnAccountOpened interface {
	Plugin
	OnAccountOpened(ctx context.Context, a *account.Account) error
}

// OnAnchorRegistered is called after an anchor is registered.
type OnAnchorRegistered interface {
	Plugin
	OnAnchorRegistered(ctx context.Context, a *anchor.Anchor) error
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionCommitted is called after a transaction is applied.
type OnTransactionCommitted interface {
	Plugin
	OnTransactionCommitted(ctx context.Context, tx *transaction.Transaction) error
}

// OnTransactionRejected is called when a proposal fails authorization.
// tx is nil when the proposal was rejected before a transaction could be
// built (unknown account, unknown anchor, duplicate id).
type OnTransactionRejected interface {
	Plugin
	OnTransactionRejected(ctx context.Context, tx *transaction.Transaction, reason error) error
}

// ──────────────────────────────────────────────────
// Consistency hooks
// ──────────────────────────────────────────────────

// OnBalanceRecomputed is called after a balance is rebuilt from history.
type OnBalanceRecomputed interface {
	Plugin
	OnBalanceRecomputed(ctx context.Context, address string, previous, current types.Money) error
}

// OnIntegrityChecked is called after an integrity pass.
type OnIntegrityChecked interface {
	Plugin
	OnIntegrityChecked(ctx context.Context, consistent bool, violations int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Persistence hooks
// ──────────────────────────────────────────────────

// OnPersistFlushed is called after a batch of committed state reaches the store.
type OnPersistFlushed interface {
	Plugin
	OnPersistFlushed(ctx context.Context, transactions int, elapsed time.Duration) error
}
