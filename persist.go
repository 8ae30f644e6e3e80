package n1c

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/transaction"
)

// journalEntry is one committed change waiting to be written. Accounts are
// named, not copied: the flush reads their state at write time, which is
// never older than the change itself.
type journalEntry struct {
	tx        *transaction.Transaction
	addresses []string
	anchor    *anchor.Anchor
}

// Snapshot is the full ledger state keyed the way the store keeps it.
type Snapshot struct {
	Accounts     map[string]*account.Account         `json:"accounts"`
	Transactions map[string]*transaction.Transaction `json:"transactions"`
	Anchors      map[string]*anchor.Anchor           `json:"anchors"`
	TakenAt      time.Time                           `json:"taken_at"`
}

// enqueue hands a change to the persistence worker. Callers hold l.mu for
// writing, so a flush that drains under the read lock sees every entry for
// the state it copies. Before Start, or when the journal is full, the
// ledger is marked dirty instead and the next flush writes everything.
// It reports false when the journal was full.
func (l *Ledger) enqueue(e journalEntry) bool {
	if !l.started.Load() {
		l.dirty.Store(true)
		return true
	}

	select {
	case l.journal <- e:
	default:
		l.dirty.Store(true)
		return false
	}

	if len(l.journal) >= l.batchSize {
		select {
		case l.kick <- struct{}{}:
		default:
		}
	}
	return true
}

// journalFull logs a dropped journal entry. Called after l.mu is released.
func (l *Ledger) journalFull() {
	l.logger.Warn("persist journal full, falling back to full snapshot",
		"error", ErrPersistBufferFull,
	)
}

// persistWorker writes journaled changes every flushInterval, or sooner
// once batchSize entries are waiting.
func (l *Ledger) persistWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			// Final flush
			if err := l.flushPending(context.WithoutCancel(ctx)); err != nil {
				l.logger.Error("final flush failed", "error", err)
			}
			return

		case <-l.kick:
			if err := l.flushPending(ctx); err != nil {
				l.logger.Error("failed to flush journal", "error", err)
			}

		case <-ticker.C:
			if err := l.flushPending(ctx); err != nil {
				l.logger.Error("failed to flush journal", "error", err)
			}
		}
	}
}

// Flush writes every pending change to the store now.
func (l *Ledger) Flush(ctx context.Context) error {
	return l.flushPending(ctx)
}

func (l *Ledger) flushPending(ctx context.Context) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	start := time.Now()

	batch := l.collect()
	if !batch.snapshot && batch.entries == 0 {
		return nil
	}
	if err := l.write(ctx, batch); err != nil {
		l.dirty.Store(true)
		return fmt.Errorf("n1c: flush: %w", err)
	}
	count := len(batch.txs)

	elapsed := time.Since(start)
	l.plugins.EmitPersistFlushed(ctx, count, elapsed)

	l.logger.Debug("flushed journal",
		"journal_id", id.NewJournalID().String(),
		"transactions", count,
		"entries", batch.entries,
		"snapshot", batch.snapshot,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return nil
}

func (l *Ledger) drain() []journalEntry {
	var entries []journalEntry
	for {
		select {
		case e := <-l.journal:
			entries = append(entries, e)
		default:
			return entries
		}
	}
}

// flushBatch is what one flush writes.
type flushBatch struct {
	anchors  []*anchor.Anchor
	txs      []*transaction.Transaction
	accounts []*account.Account
	entries  int
	snapshot bool
}

// collect drains the journal and copies what it names under one read lock.
// Mutations enqueue while holding the write lock, so every transaction in
// a copied history is either in the batch or was written by an earlier
// flush. A dirty ledger is collected whole; the dirty flag is read under
// the same lock so an entry dropped by a full journal is never missed.
func (l *Ledger) collect() flushBatch {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.drain()
	b := flushBatch{entries: len(entries)}

	if l.dirty.Swap(false) {
		b.snapshot = true
		b.accounts = l.state.book.List()
		b.txs = append([]*transaction.Transaction(nil), l.state.order...)
		b.anchors = l.anchors.List()
		return b
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.tx != nil {
			b.txs = append(b.txs, e.tx)
		}
		if e.anchor != nil {
			b.anchors = append(b.anchors, e.anchor)
		}
		for _, addr := range e.addresses {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			if a, ok := l.state.book.Get(addr); ok {
				b.accounts = append(b.accounts, a.Copy())
			}
		}
	}
	return b
}

// write saves anchors and transactions before accounts, so stored
// histories never reference records the store does not hold.
func (l *Ledger) write(ctx context.Context, b flushBatch) error {
	for _, a := range b.anchors {
		if err := l.store.SaveAnchor(ctx, a); err != nil {
			return err
		}
	}
	if len(b.txs) > 0 {
		if err := l.store.SaveTransactions(ctx, b.txs); err != nil {
			return err
		}
	}
	if len(b.accounts) > 0 {
		if err := l.store.SaveAccounts(ctx, b.accounts); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a consistent copy of the whole ledger state.
func (l *Ledger) Snapshot(_ context.Context) *Snapshot {
	snap := &Snapshot{
		Anchors: make(map[string]*anchor.Anchor),
		TakenAt: l.clock().UTC(),
	}

	l.mu.RLock()
	snap.Accounts = make(map[string]*account.Account, l.state.book.Len())
	snap.Transactions = make(map[string]*transaction.Transaction, len(l.state.txs))
	l.state.book.Each(func(a *account.Account) bool {
		snap.Accounts[a.Address] = a.Copy()
		return true
	})
	for key, tx := range l.state.txs {
		snap.Transactions[key] = tx.Copy()
	}
	l.mu.RUnlock()

	for _, a := range l.anchors.List() {
		snap.Anchors[a.ID] = a
	}
	return snap
}

// Restore replaces the in-memory state with what the store holds. The
// loaded state must pass a full integrity check; otherwise nothing is
// replaced and the error lists every violation, each wrapping
// ErrIntegrityViolation.
func (l *Ledger) Restore(ctx context.Context) error {
	accounts, err := l.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("n1c: restore accounts: %w", err)
	}
	txs, err := l.store.ListTransactions(ctx, transaction.ListOpts{})
	if err != nil {
		return fmt.Errorf("n1c: restore transactions: %w", err)
	}
	anchors, err := l.store.ListAnchors(ctx)
	if err != nil {
		return fmt.Errorf("n1c: restore anchors: %w", err)
	}

	next, err := rebuild(l.currency, accounts, txs)
	if err != nil {
		return fmt.Errorf("n1c: restore: %w", err)
	}
	if violations := next.check(false); len(violations) > 0 {
		var errs MultiError
		for _, v := range violations {
			errs.Add(fmt.Errorf("%s: %w", v.String(), ErrIntegrityViolation))
		}
		l.plugins.EmitIntegrityChecked(ctx, false, len(violations), 0)
		return errs
	}

	registry := anchor.NewRegistry()
	if err := registry.Restore(anchors); err != nil {
		return fmt.Errorf("n1c: restore anchors: %w", err)
	}

	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	prev := l.state
	l.state = next
	l.dirty.Store(false)
	if err := l.openIssuer(); err != nil {
		l.state = prev
		l.mu.Unlock()
		return err
	}
	_ = l.anchors.Restore(registry.List()) //nolint:errcheck // validated above
	l.drain()
	l.mu.Unlock()

	l.logger.Info("ledger restored",
		"accounts", len(accounts),
		"transactions", len(txs),
		"anchors", len(anchors),
	)
	return nil
}
