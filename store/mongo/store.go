package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	n1cstore "github.com/xraph/n1c/store"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Collection name constants.
const (
	colAccounts     = "n1c_accounts"
	colTransactions = "n1c_transactions"
	colAnchors      = "n1c_anchors"
)

// compile-time interface check
var _ n1cstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all n1c collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("n1c/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) SaveAccounts(ctx context.Context, accounts []*account.Account) error {
	for _, a := range accounts {
		m := toAccountModel(a)
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.Address}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"kind":       m.Kind,
					"balance":    m.Balance,
					"currency":   m.Currency,
					"history":    m.History,
					"updated_at": m.UpdatedAt,
				},
				"$setOnInsert": bson.M{
					"created_at": m.CreatedAt,
				},
			}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("n1c/mongo: save account %s: %w", a.Address, err)
		}
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, address string) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": address}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("account %s: %w", address, types.ErrNotFound)
		}
		return nil, fmt.Errorf("n1c/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	var models []accountModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("n1c/mongo: list accounts: %w", err)
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// ==================== Transaction Store ====================

func (s *Store) SaveTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	for _, tx := range txs {
		m := toTransactionModel(tx)
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if err != nil {
			// Already stored; transactions never change.
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("n1c/mongo: save transaction: %w", err)
		}
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": txID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("transaction %s: %w", txID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("n1c/mongo: get transaction: %w", err)
	}
	return fromTransactionModel(&m)
}

func (s *Store) ListTransactions(ctx context.Context, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	var models []transactionModel

	filter := bson.M{}
	if opts.Address != "" {
		filter["$or"] = bson.A{
			bson.M{"sender": opts.Address},
			bson.M{"receiver": opts.Address},
		}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "seq", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("n1c/mongo: list transactions: %w", err)
	}

	result := make([]*transaction.Transaction, len(models))
	for i := range models {
		tx, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = tx
	}
	return result, nil
}

// ==================== Anchor Store ====================

func (s *Store) SaveAnchor(ctx context.Context, a *anchor.Anchor) error {
	m := toAnchorModel(a)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        m.ID,
			"spread":     m.Spread,
			"tax_rate":   m.TaxRate,
			"created_at": m.CreatedAt,
			"updated_at": m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("n1c/mongo: save anchor: %w", err)
	}
	return nil
}

func (s *Store) ListAnchors(ctx context.Context) ([]*anchor.Anchor, error) {
	var models []anchorModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("n1c/mongo: list anchors: %w", err)
	}

	result := make([]*anchor.Anchor, len(models))
	for i := range models {
		a, err := fromAnchorModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all n1c collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "kind", Value: 1}}},
		},
		colTransactions: {
			{
				Keys:    bson.D{{Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "seq", Value: 1}}},
		},
		colAnchors: {},
	}
}
