package account

import (
	"fmt"
	"sort"

	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/types"
)

// Book is the address-keyed set of accounts.
type Book struct {
	currency string
	accounts map[string]*Account
}

// NewBook returns an empty book whose balances are kept in currency.
func NewBook(currency string) *Book {
	return &Book{currency: currency, accounts: make(map[string]*Account)}
}

// Open creates a zero-balance account. It fails with types.ErrDuplicateID
// when the address is taken.
func (b *Book) Open(address string, kind Kind) (*Account, error) {
	if address == "" {
		return nil, fmt.Errorf("account: empty address: %w", types.ErrInvalidInput)
	}
	if _, ok := b.accounts[address]; ok {
		return nil, fmt.Errorf("account %s: %w", address, types.ErrDuplicateID)
	}
	a := &Account{
		Entity:  types.NewEntity(),
		Address: address,
		Kind:    kind,
		Balance: types.Zero(b.currency),
	}
	b.accounts[address] = a
	return a, nil
}

// Get returns the live account for address. Callers must hold the owner's lock.
func (b *Book) Get(address string) (*Account, bool) {
	a, ok := b.accounts[address]
	return a, ok
}

// Len returns the number of accounts.
func (b *Book) Len() int { return len(b.accounts) }

// List returns copies of every account sorted by address.
func (b *Book) List() []*Account {
	out := make([]*Account, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, a.Copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Each calls fn for every live account in address order and stops at the
// first false.
func (b *Book) Each(fn func(*Account) bool) {
	addrs := make([]string, 0, len(b.accounts))
	for addr := range b.accounts {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		if !fn(b.accounts[addr]) {
			return
		}
	}
}

// Restore replaces the book contents with copies of accounts.
func (b *Book) Restore(accounts []*Account) error {
	next := make(map[string]*Account, len(accounts))
	for _, a := range accounts {
		if a.Address == "" {
			return fmt.Errorf("account: empty address: %w", types.ErrInvalidInput)
		}
		if _, ok := next[a.Address]; ok {
			return fmt.Errorf("account %s: %w", a.Address, types.ErrDuplicateID)
		}
		if a.Balance.Currency != b.currency {
			return fmt.Errorf("account %s: balance in %q, book keeps %q: %w",
				a.Address, a.Balance.Currency, b.currency, types.ErrInvalidInput)
		}
		next[a.Address] = a.Copy()
	}
	b.accounts = next
	return nil
}

// Replay recomputes the balance of a from zero by applying every movement in
// its history. lookup resolves history ids; an id it cannot resolve is an
// integrity violation.
func (b *Book) Replay(a *Account, lookup func(id.ID) (Movement, bool)) (types.Money, error) {
	balance := types.Zero(b.currency)
	for _, txID := range a.History {
		m, ok := lookup(txID)
		if !ok {
			return types.Money{}, fmt.Errorf("account %s: history references unknown transaction %s: %w",
				a.Address, txID, types.ErrIntegrityViolation)
		}
		balance = balance.Add(m.Delta(a.Address))
	}
	return balance, nil
}
