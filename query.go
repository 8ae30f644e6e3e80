package n1c

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/signing"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

// OpenAccount registers a zero-balance account for address.
func (l *Ledger) OpenAccount(ctx context.Context, address string) (*account.Account, error) {
	if err := signing.ValidateAddress(address); err != nil {
		return nil, err
	}

	l.mu.Lock()
	a, err := l.openAccount(address, account.KindStandard)
	queued := err != nil || l.enqueue(journalEntry{addresses: []string{address}})
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !queued {
		l.journalFull()
	}

	l.plugins.EmitAccountOpened(ctx, a)
	l.logger.Debug("account opened", "address", address)

	return a, nil
}

// CreateWallet generates a key pair in the ledger's keyring and opens the
// account it controls. The private key is available from Keyring().
func (l *Ledger) CreateWallet(ctx context.Context) (*account.Account, error) {
	address, err := l.keyring.Generate(rand.Reader)
	if err != nil {
		return nil, err
	}
	return l.OpenAccount(ctx, address)
}

// GetAccount returns a copy of the account at address.
func (l *Ledger) GetAccount(_ context.Context, address string) (*account.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.state.book.Get(address)
	if !ok {
		return nil, fmt.Errorf("account %s: %w", address, ErrNotFound)
	}
	return a.Copy(), nil
}

// GetBalance returns the stored balance of address.
func (l *Ledger) GetBalance(_ context.Context, address string) (types.Money, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.state.book.Get(address)
	if !ok {
		return types.Money{}, fmt.Errorf("account %s: %w", address, ErrNotFound)
	}
	return a.Balance, nil
}

// ListAccounts returns copies of every account, sorted by address.
func (l *Ledger) ListAccounts(_ context.Context) []*account.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.book.List()
}

// History returns the transactions that touched address, in the order
// they were applied.
func (l *Ledger) History(_ context.Context, address string) ([]*transaction.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.state.book.Get(address)
	if !ok {
		return nil, fmt.Errorf("account %s: %w", address, ErrNotFound)
	}
	out := make([]*transaction.Transaction, 0, len(a.History))
	for _, txID := range a.History {
		if tx, ok := l.state.txs[txID.String()]; ok {
			out = append(out, tx.Copy())
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

// GetTransaction returns the committed transaction with the given id.
func (l *Ledger) GetTransaction(_ context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tx, ok := l.state.txs[txID.String()]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", txID, ErrNotFound)
	}
	return tx.Copy(), nil
}

// ListTransactions returns committed transactions in commit order.
func (l *Ledger) ListTransactions(_ context.Context, opts transaction.ListOpts) []*transaction.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*transaction.Transaction
	for _, tx := range l.state.order {
		if opts.Matches(tx) {
			out = append(out, tx)
		}
	}
	out = opts.Page(out)
	for i, tx := range out {
		out[i] = tx.Copy()
	}
	return out
}

// TotalSupply is the sum of all standard account balances: everything
// issued minus everything burned.
func (l *Ledger) TotalSupply(_ context.Context) types.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := types.Zero(l.currency)
	l.state.book.Each(func(a *account.Account) bool {
		if !a.IsIssuer() {
			total = total.Add(a.Balance)
		}
		return true
	})
	return total
}

// TotalBurned is the sum of every fee and tax ever charged.
func (l *Ledger) TotalBurned(_ context.Context) types.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.burned
}

// ──────────────────────────────────────────────────
// Anchors
// ──────────────────────────────────────────────────

// RegisterAnchor registers an anchor with the given spread and tax rate,
// both in percent.
func (l *Ledger) RegisterAnchor(ctx context.Context, anchorID string, spread, taxRate decimal.Decimal) (*anchor.Anchor, error) {
	return l.registerAnchor(ctx, func() (*anchor.Anchor, error) {
		return l.anchors.Register(anchorID, spread, taxRate)
	})
}

// RegisterDefaultAnchor registers an anchor with anchor.DefaultSpread and
// anchor.DefaultTaxRate.
func (l *Ledger) RegisterDefaultAnchor(ctx context.Context, anchorID string) (*anchor.Anchor, error) {
	return l.registerAnchor(ctx, func() (*anchor.Anchor, error) {
		return l.anchors.RegisterDefault(anchorID)
	})
}

// registerAnchor runs register under l.mu so no commit can quote the anchor
// before its journal entry exists.
func (l *Ledger) registerAnchor(ctx context.Context, register func() (*anchor.Anchor, error)) (*anchor.Anchor, error) {
	l.mu.Lock()
	a, err := register()
	queued := err != nil || l.enqueue(journalEntry{anchor: a})
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !queued {
		l.journalFull()
	}

	l.plugins.EmitAnchorRegistered(ctx, a)
	l.logger.Debug("anchor registered",
		"anchor_id", a.ID,
		"spread", a.Spread.String(),
		"tax_rate", a.TaxRate.String(),
	)

	return a, nil
}

// GetAnchor returns the anchor registered under anchorID.
func (l *Ledger) GetAnchor(_ context.Context, anchorID string) (*anchor.Anchor, error) {
	a, ok := l.anchors.Get(anchorID)
	if !ok {
		return nil, fmt.Errorf("anchor %q: %w", anchorID, ErrNotFound)
	}
	return a, nil
}

// ListAnchors returns every registered anchor sorted by id.
func (l *Ledger) ListAnchors(_ context.Context) []*anchor.Anchor {
	return l.anchors.List()
}
