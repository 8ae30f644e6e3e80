// Package file provides a store.Store kept in a single msgpack file.
//
// The whole state is held in memory and the file is rewritten atomically
// (write to a temporary file, then rename) after every save, so a crash
// leaves either the old or the new state on disk, never a torn one. It
// suits the CLI and small single-process deployments.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/store"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// formatVersion is written into every file and checked on load.
const formatVersion = 1

// Store is a file-backed store.Store.
type Store struct {
	path string

	mu     sync.RWMutex
	closed bool
	data   *snapshotRecord
}

// Open loads the store at path. A missing file is an empty store; the
// file is created on the first save.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: newSnapshotRecord()}

	buf, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("file store: read %s: %w", path, err)
	}

	var rec snapshotRecord
	if err := msgpack.Unmarshal(buf, &rec); err != nil {
		return nil, fmt.Errorf("file store: decode %s: %w", path, err)
	}
	if rec.Version != formatVersion {
		return nil, fmt.Errorf("file store: %s has format version %d, want %d", path, rec.Version, formatVersion)
	}
	if rec.Accounts == nil {
		rec.Accounts = make(map[string]accountRecord)
	}
	if rec.Transactions == nil {
		rec.Transactions = make(map[string]transactionRecord)
	}
	if rec.Anchors == nil {
		rec.Anchors = make(map[string]anchorRecord)
	}
	s.data = &rec
	return s, nil
}

// Path returns the file the store writes to.
func (s *Store) Path() string { return s.path }

// ──────────────────────────────────────────────────
// Account methods
// ──────────────────────────────────────────────────

func (s *Store) SaveAccounts(_ context.Context, accounts []*account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	for _, a := range accounts {
		s.data.Accounts[a.Address] = toAccountRecord(a)
	}
	return s.persist()
}

func (s *Store) GetAccount(_ context.Context, address string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	rec, ok := s.data.Accounts[address]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", address, types.ErrNotFound)
	}
	return fromAccountRecord(rec)
}

func (s *Store) ListAccounts(_ context.Context) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	result := make([]*account.Account, 0, len(s.data.Accounts))
	for _, rec := range s.data.Accounts {
		a, err := fromAccountRecord(rec)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Address < result[j].Address })
	return result, nil
}

// ──────────────────────────────────────────────────
// Transaction methods
// ──────────────────────────────────────────────────

func (s *Store) SaveTransactions(_ context.Context, txs []*transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	added := 0
	for _, tx := range txs {
		key := tx.ID.String()
		if _, exists := s.data.Transactions[key]; exists {
			continue
		}
		s.data.Transactions[key] = toTransactionRecord(tx)
		added++
	}
	if added == 0 {
		return nil
	}
	return s.persist()
}

func (s *Store) GetTransaction(_ context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	rec, ok := s.data.Transactions[txID.String()]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", txID, types.ErrNotFound)
	}
	return fromTransactionRecord(rec)
}

func (s *Store) ListTransactions(_ context.Context, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	result := make([]*transaction.Transaction, 0, len(s.data.Transactions))
	for _, rec := range s.data.Transactions {
		tx, err := fromTransactionRecord(rec)
		if err != nil {
			return nil, err
		}
		if opts.Matches(tx) {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return opts.Page(result), nil
}

// ──────────────────────────────────────────────────
// Anchor methods
// ──────────────────────────────────────────────────

func (s *Store) SaveAnchor(_ context.Context, a *anchor.Anchor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	s.data.Anchors[a.ID] = toAnchorRecord(a)
	return s.persist()
}

func (s *Store) ListAnchors(_ context.Context) ([]*anchor.Anchor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	result := make([]*anchor.Anchor, 0, len(s.data.Anchors))
	for _, rec := range s.data.Anchors {
		a, err := fromAnchorRecord(rec)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

// Migrate creates the parent directory of the store file.
func (s *Store) Migrate(_ context.Context) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("file store: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// persist rewrites the file. Callers hold s.mu.
func (s *Store) persist() error {
	s.data.Version = formatVersion
	s.data.WrittenAt = time.Now().UTC()

	buf, err := msgpack.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}
	if err := renameio.WriteFile(s.path, buf, 0o600); err != nil {
		return fmt.Errorf("file store: write %s: %w", s.path, err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// On-disk records
// ──────────────────────────────────────────────────

type snapshotRecord struct {
	Version      int                          `msgpack:"version"`
	WrittenAt    time.Time                    `msgpack:"written_at"`
	Accounts     map[string]accountRecord     `msgpack:"accounts"`
	Transactions map[string]transactionRecord `msgpack:"transactions"`
	Anchors      map[string]anchorRecord      `msgpack:"anchors"`
}

func newSnapshotRecord() *snapshotRecord {
	return &snapshotRecord{
		Version:      formatVersion,
		Accounts:     make(map[string]accountRecord),
		Transactions: make(map[string]transactionRecord),
		Anchors:      make(map[string]anchorRecord),
	}
}

type accountRecord struct {
	Address   string    `msgpack:"address"`
	Kind      string    `msgpack:"kind"`
	Balance   int64     `msgpack:"balance"`
	Currency  string    `msgpack:"currency"`
	History   []string  `msgpack:"history"`
	CreatedAt time.Time `msgpack:"created_at"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

type transactionRecord struct {
	ID        string    `msgpack:"id"`
	Kind      string    `msgpack:"kind"`
	Sender    string    `msgpack:"sender"`
	Receiver  string    `msgpack:"receiver"`
	Amount    int64     `msgpack:"amount"`
	Fee       int64     `msgpack:"fee"`
	Tax       int64     `msgpack:"tax"`
	Currency  string    `msgpack:"currency"`
	AnchorID  string    `msgpack:"anchor_id"`
	Timestamp time.Time `msgpack:"timestamp"`
	Signature []byte    `msgpack:"signature"`
	Seq       int64     `msgpack:"seq"`
}

// Rates are stored as decimal strings so they round-trip exactly.
type anchorRecord struct {
	ID        string    `msgpack:"id"`
	Spread    string    `msgpack:"spread"`
	TaxRate   string    `msgpack:"tax_rate"`
	CreatedAt time.Time `msgpack:"created_at"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

func toAccountRecord(a *account.Account) accountRecord {
	history := make([]string, len(a.History))
	for i, txID := range a.History {
		history[i] = txID.String()
	}
	return accountRecord{
		Address:   a.Address,
		Kind:      string(a.Kind),
		Balance:   a.Balance.Amount,
		Currency:  a.Balance.Currency,
		History:   history,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAccountRecord(r accountRecord) (*account.Account, error) {
	history := make([]id.ID, len(r.History))
	for i, s := range r.History {
		txID, err := id.ParseTransactionID(s)
		if err != nil {
			return nil, fmt.Errorf("file store: account %s: %w", r.Address, err)
		}
		history[i] = txID
	}
	return &account.Account{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		},
		Address: r.Address,
		Kind:    account.Kind(r.Kind),
		Balance: types.Money{Amount: r.Balance, Currency: r.Currency},
		History: history,
	}, nil
}

func toTransactionRecord(tx *transaction.Transaction) transactionRecord {
	return transactionRecord{
		ID:        tx.ID.String(),
		Kind:      string(tx.Kind),
		Sender:    tx.Sender,
		Receiver:  tx.Receiver,
		Amount:    tx.Amount.Amount,
		Fee:       tx.Fee.Amount,
		Tax:       tx.Tax.Amount,
		Currency:  tx.Amount.Currency,
		AnchorID:  tx.AnchorID,
		Timestamp: tx.Timestamp,
		Signature: tx.Signature,
		Seq:       tx.Seq,
	}
}

func fromTransactionRecord(r transactionRecord) (*transaction.Transaction, error) {
	txID, err := id.ParseTransactionID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("file store: transaction: %w", err)
	}
	return &transaction.Transaction{
		ID:        txID,
		Kind:      transaction.Kind(r.Kind),
		Sender:    r.Sender,
		Receiver:  r.Receiver,
		Amount:    types.Money{Amount: r.Amount, Currency: r.Currency},
		Fee:       types.Money{Amount: r.Fee, Currency: r.Currency},
		Tax:       types.Money{Amount: r.Tax, Currency: r.Currency},
		AnchorID:  r.AnchorID,
		Timestamp: r.Timestamp.UTC(),
		Signature: append([]byte(nil), r.Signature...),
		Seq:       r.Seq,
	}, nil
}

func toAnchorRecord(a *anchor.Anchor) anchorRecord {
	return anchorRecord{
		ID:        a.ID,
		Spread:    a.Spread.String(),
		TaxRate:   a.TaxRate.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAnchorRecord(r anchorRecord) (*anchor.Anchor, error) {
	spread, err := decimal.NewFromString(r.Spread)
	if err != nil {
		return nil, fmt.Errorf("file store: anchor %s spread: %w", r.ID, err)
	}
	taxRate, err := decimal.NewFromString(r.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("file store: anchor %s tax rate: %w", r.ID, err)
	}
	return &anchor.Anchor{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		},
		ID:      r.ID,
		Spread:  spread,
		TaxRate: taxRate,
	}, nil
}
