package transaction

import (
	"context"

	"github.com/xraph/n1c/id"
)

// Store persists committed transactions. Transactions are immutable, so
// SaveTransactions skips ids that are already stored.
type Store interface {
	SaveTransactions(ctx context.Context, txs []*Transaction) error
	GetTransaction(ctx context.Context, txID id.TransactionID) (*Transaction, error)
	ListTransactions(ctx context.Context, opts ListOpts) ([]*Transaction, error)
}
