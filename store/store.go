// Package store defines the persistence contract of the n1c ledger.
//
// A store holds the three mappings the ledger rebuilds itself from:
// accounts by address, transactions by id, and anchors by id. Writes are
// idempotent upserts so a flush can be retried or replayed in full.
package store

import (
	"context"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/transaction"
)

// Store is the unified storage interface for ledger state.
// The methods are declared explicitly rather than by embedding the
// per-package interfaces so every backend reads as one contract.
type Store interface {
	// Account methods
	SaveAccounts(ctx context.Context, accounts []*account.Account) error
	GetAccount(ctx context.Context, address string) (*account.Account, error)
	ListAccounts(ctx context.Context) ([]*account.Account, error)

	// Transaction methods
	SaveTransactions(ctx context.Context, txs []*transaction.Transaction) error
	GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error)
	ListTransactions(ctx context.Context, opts transaction.ListOpts) ([]*transaction.Transaction, error)

	// Anchor methods
	SaveAnchor(ctx context.Context, a *anchor.Anchor) error
	ListAnchors(ctx context.Context) ([]*anchor.Anchor, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Compile-time checks that Store covers every per-package contract.
var (
	_ account.Store     = Store(nil)
	_ transaction.Store = Store(nil)
	_ anchor.Store      = Store(nil)
)
