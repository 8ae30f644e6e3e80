// Package memory provides an in-process store.Store. It keeps copies of
// everything written to it and is safe for concurrent use; data is lost
// when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/store"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	closed bool

	// Account storage, by address
	accounts map[string]*account.Account

	// Transaction storage, by id
	transactions map[string]*transaction.Transaction

	// Anchor storage, by id
	anchors map[string]*anchor.Anchor
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]*account.Account),
		transactions: make(map[string]*transaction.Transaction),
		anchors:      make(map[string]*anchor.Anchor),
	}
}

// Account Store implementation
func (s *Store) SaveAccounts(_ context.Context, accounts []*account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	for _, a := range accounts {
		s.accounts[a.Address] = a.Copy()
	}
	return nil
}

func (s *Store) GetAccount(_ context.Context, address string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	if a, ok := s.accounts[address]; ok {
		return a.Copy(), nil
	}
	return nil, fmt.Errorf("account %s: %w", address, types.ErrNotFound)
}

func (s *Store) ListAccounts(_ context.Context) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	result := make([]*account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		result = append(result, a.Copy())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Address < result[j].Address })
	return result, nil
}

// Transaction Store implementation
func (s *Store) SaveTransactions(_ context.Context, txs []*transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	for _, tx := range txs {
		key := tx.ID.String()
		if _, exists := s.transactions[key]; exists {
			continue
		}
		s.transactions[key] = tx.Copy()
	}
	return nil
}

func (s *Store) GetTransaction(_ context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	if tx, ok := s.transactions[txID.String()]; ok {
		return tx.Copy(), nil
	}
	return nil, fmt.Errorf("transaction %s: %w", txID, types.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	result := make([]*transaction.Transaction, 0)
	for _, tx := range s.transactions {
		if opts.Matches(tx) {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })

	// Apply limit/offset
	result = opts.Page(result)
	for i, tx := range result {
		result[i] = tx.Copy()
	}
	return result, nil
}

// Anchor Store implementation
func (s *Store) SaveAnchor(_ context.Context, a *anchor.Anchor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	c := *a
	s.anchors[a.ID] = &c
	return nil
}

func (s *Store) ListAnchors(_ context.Context) ([]*anchor.Anchor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	result := make([]*anchor.Anchor, 0, len(s.anchors))
	for _, a := range s.anchors {
		c := *a
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
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
