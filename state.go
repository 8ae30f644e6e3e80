package n1c

import (
	"fmt"
	"sort"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// state is everything guarded by Ledger.mu.
type state struct {
	book   *account.Book
	txs    map[string]*transaction.Transaction
	order  []*transaction.Transaction
	burned types.Money
}

func newState(currency string) *state {
	return &state{
		book:   account.NewBook(currency),
		txs:    make(map[string]*transaction.Transaction),
		burned: types.Zero(currency),
	}
}

func (s *state) lookup(txID id.ID) (account.Movement, bool) {
	tx, ok := s.txs[txID.String()]
	if !ok {
		return nil, false
	}
	return tx, true
}

// apply records an authorized transaction. It must not fail.
func (s *state) apply(tx *transaction.Transaction, sender, receiver *account.Account) {
	tx.Seq = int64(len(s.order)) + 1
	sender.Post(tx.ID, tx.Delta(sender.Address))
	receiver.Post(tx.ID, tx.Delta(receiver.Address))
	s.txs[tx.ID.String()] = tx
	s.order = append(s.order, tx)
	s.burned = s.burned.Add(tx.Charges())
}

// rebuild assembles a state from persisted records without checking
// consistency; callers run check afterwards.
func rebuild(currency string, accounts []*account.Account, txs []*transaction.Transaction) (*state, error) {
	s := newState(currency)
	if err := s.book.Restore(accounts); err != nil {
		return nil, err
	}

	sorted := append([]*transaction.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	var errs types.MultiError
	for i, tx := range sorted {
		key := tx.ID.String()
		if _, ok := s.txs[key]; ok {
			errs.Add(fmt.Errorf("transaction %s: %w", key, types.ErrDuplicateID))
			continue
		}
		if tx.Seq != int64(i)+1 {
			errs.Add(fmt.Errorf("transaction %s: sequence %d, expected %d: %w",
				key, tx.Seq, i+1, types.ErrIntegrityViolation))
		}
		if tx.Amount.Currency != currency || tx.Fee.Currency != currency || tx.Tax.Currency != currency {
			errs.Add(fmt.Errorf("transaction %s: not in %q: %w", key, currency, types.ErrIntegrityViolation))
			continue
		}
		c := tx.Copy()
		s.txs[key] = c
		s.order = append(s.order, c)
		s.burned = s.burned.Add(c.Charges())
	}
	if errs.HasErrors() {
		return nil, errs
	}
	return s, nil
}
