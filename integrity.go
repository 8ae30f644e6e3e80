package n1c

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/types"
)

// IntegrityViolation describes one way stored state disagrees with history.
// It is reported by IntegrityReport, never returned from a commit path.
type IntegrityViolation struct {
	Address  string      `json:"address,omitempty"`
	TxID     id.ID       `json:"tx_id,omitempty"`
	Stored   types.Money `json:"stored,omitempty"`
	Replayed types.Money `json:"replayed,omitempty"`
	Reason   string      `json:"reason"`
}

func (v IntegrityViolation) String() string {
	switch {
	case v.Address != "" && !v.TxID.IsNil():
		return fmt.Sprintf("%s: %s: %s", v.Address, v.TxID, v.Reason)
	case v.Address != "":
		return fmt.Sprintf("%s: %s", v.Address, v.Reason)
	default:
		return fmt.Sprintf("%s: %s", v.TxID, v.Reason)
	}
}

// IntegrityReport is the result of a full integrity pass.
type IntegrityReport struct {
	Consistent   bool                 `json:"consistent"`
	Accounts     int                  `json:"accounts"`
	Transactions int                  `json:"transactions"`
	Violations   []IntegrityViolation `json:"violations,omitempty"`
	CheckedAt    time.Time            `json:"checked_at"`
	Elapsed      time.Duration        `json:"elapsed"`
}

// RecomputeBalance rebuilds the balance of address from its history,
// overwrites the stored balance, and returns it.
func (l *Ledger) RecomputeBalance(ctx context.Context, address string) (types.Money, error) {
	l.mu.Lock()
	a, ok := l.state.book.Get(address)
	if !ok {
		l.mu.Unlock()
		return types.Money{}, fmt.Errorf("account %s: %w", address, ErrNotFound)
	}
	replayed, err := l.state.book.Replay(a, l.state.lookup)
	if err != nil {
		l.mu.Unlock()
		return types.Money{}, err
	}
	previous := a.Balance
	changed := !previous.Equal(replayed)
	queued := true
	if changed {
		a.Balance = replayed
		a.Touch()
		queued = l.enqueue(journalEntry{addresses: []string{address}})
	}
	l.mu.Unlock()

	if changed {
		l.logger.Warn("balance corrected from history",
			"address", address,
			"stored", previous.String(),
			"replayed", replayed.String(),
		)
	}
	if !queued {
		l.journalFull()
	}
	l.plugins.EmitBalanceRecomputed(ctx, address, previous, replayed)

	return replayed, nil
}

// VerifyIntegrity reports whether every stored balance equals its replayed
// history. It stops at the first mismatch and never repairs anything.
func (l *Ledger) VerifyIntegrity(ctx context.Context) bool {
	start := time.Now()

	l.mu.RLock()
	violations := l.state.check(true)
	l.mu.RUnlock()

	ok := len(violations) == 0
	l.plugins.EmitIntegrityChecked(ctx, ok, len(violations), time.Since(start))
	if !ok {
		l.logger.Warn("integrity check failed", "violation", violations[0].String())
	}
	return ok
}

// IntegrityReport runs a full integrity pass and returns every violation.
func (l *Ledger) IntegrityReport(ctx context.Context) *IntegrityReport {
	start := time.Now()

	l.mu.RLock()
	violations := l.state.check(false)
	report := &IntegrityReport{
		Accounts:     l.state.book.Len(),
		Transactions: len(l.state.order),
	}
	l.mu.RUnlock()

	report.Violations = violations
	report.Consistent = len(violations) == 0
	report.CheckedAt = l.clock().UTC()
	report.Elapsed = time.Since(start)

	l.plugins.EmitIntegrityChecked(ctx, report.Consistent, len(violations), report.Elapsed)
	return report
}

// check compares every account with its replayed history and every
// transaction with the histories that should reference it. With stopEarly
// it returns at the first violation.
func (s *state) check(stopEarly bool) []IntegrityViolation {
	var out []IntegrityViolation
	add := func(v IntegrityViolation) bool {
		out = append(out, v)
		return !stopEarly
	}

	// seen[tx][address] counts history references.
	seen := make(map[string]map[string]int, len(s.txs))

	keepGoing := true
	s.book.Each(func(a *account.Account) bool {
		replayed := types.Zero(a.Balance.Currency)
		for _, txID := range a.History {
			key := txID.String()
			tx, ok := s.txs[key]
			if !ok {
				keepGoing = add(IntegrityViolation{Address: a.Address, TxID: txID, Reason: "history references an unknown transaction"})
				if !keepGoing {
					return false
				}
				continue
			}
			if tx.Sender != a.Address && tx.Receiver != a.Address {
				keepGoing = add(IntegrityViolation{Address: a.Address, TxID: txID, Reason: "history references a transaction of other parties"})
				if !keepGoing {
					return false
				}
			}
			if seen[key] == nil {
				seen[key] = make(map[string]int, 2)
			}
			seen[key][a.Address]++
			replayed = replayed.Add(tx.Delta(a.Address))
		}
		if !replayed.Equal(a.Balance) {
			keepGoing = add(IntegrityViolation{
				Address:  a.Address,
				Stored:   a.Balance,
				Replayed: replayed,
				Reason:   "stored balance differs from replayed history",
			})
		}
		return keepGoing
	})
	if !keepGoing {
		return out
	}

	for _, tx := range s.order {
		refs := seen[tx.ID.String()]
		for _, party := range []string{tx.Sender, tx.Receiver} {
			if _, ok := s.book.Get(party); !ok {
				if !add(IntegrityViolation{Address: party, TxID: tx.ID, Reason: "party account does not exist"}) {
					return out
				}
				continue
			}
			if n := refs[party]; n != 1 {
				if !add(IntegrityViolation{
					Address: party,
					TxID:    tx.ID,
					Reason:  fmt.Sprintf("referenced %d times in party history, want 1", n),
				}) {
					return out
				}
			}
		}
	}
	return out
}
