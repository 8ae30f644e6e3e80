package n1c

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// AnchorRef optionally names the anchor a transfer goes through.
// The zero value is NoAnchor.
type AnchorRef struct {
	id  string
	set bool
}

// NoAnchor is a transfer without an intermediary: no fee, no tax.
var NoAnchor = AnchorRef{}

// AnchorRefOf refers to the anchor registered under id. An empty id is
// still an explicit reference and will not resolve.
func AnchorRefOf(id string) AnchorRef { return AnchorRef{id: id, set: true} }

// ID returns the referenced anchor id and whether one is set.
func (r AnchorRef) ID() (string, bool) { return r.id, r.set }

func (r AnchorRef) String() string {
	if !r.set {
		return "none"
	}
	return r.id
}

// Proposal is a signed transfer request. Fee and tax are not part of it:
// the ledger derives them from the anchor, and the signature only verifies
// if the signer saw the same figures (Prepare returns them).
type Proposal struct {
	ID        id.TransactionID
	Sender    string
	Receiver  string
	Amount    types.Money
	Anchor    AnchorRef
	Timestamp time.Time
	Signature []byte
}

// ProposalOf turns a prepared and signed transaction into a Proposal.
func ProposalOf(tx *transaction.Transaction) Proposal {
	ref := NoAnchor
	if tx.AnchorID != "" {
		ref = AnchorRefOf(tx.AnchorID)
	}
	return Proposal{
		ID:        tx.ID,
		Sender:    tx.Sender,
		Receiver:  tx.Receiver,
		Amount:    tx.Amount,
		Anchor:    ref,
		Timestamp: tx.Timestamp,
		Signature: append([]byte(nil), tx.Signature...),
	}
}

// Prepare builds an unsigned transaction with a fresh id, the current time
// and the fee and tax the anchor would charge. The caller signs it and
// passes ProposalOf(tx) to Submit.
func (l *Ledger) Prepare(_ context.Context, sender, receiver string, amount types.Money, ref AnchorRef) (*transaction.Transaction, error) {
	l.mu.RLock()
	from, okFrom := l.state.book.Get(sender)
	_, okTo := l.state.book.Get(receiver)
	issuer := okFrom && from.IsIssuer()
	l.mu.RUnlock()

	if !okFrom {
		return nil, fmt.Errorf("sender %s: %w", sender, ErrNotFound)
	}
	if !okTo {
		return nil, fmt.Errorf("receiver %s: %w", receiver, ErrNotFound)
	}

	quote := l.quote(ref, amount)

	kind := transaction.KindTransfer
	if issuer {
		kind = transaction.KindIssuance
	}
	anchorID, _ := ref.ID()

	return &transaction.Transaction{
		ID:        id.NewTransactionID(),
		Kind:      kind,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Fee:       quote.Fee,
		Tax:       quote.Tax,
		AnchorID:  anchorID,
		Timestamp: l.now(),
	}, nil
}

// Submit authorizes a proposal and, if every check passes, commits it:
// the sender is debited amount+fee+tax, the receiver credited amount, and
// the transaction appended to both histories. Authorization errors are
// returned unchanged and leave no trace in the ledger.
func (l *Ledger) Submit(ctx context.Context, p Proposal) (*transaction.Transaction, error) {
	tx, queued, err := l.submit(p)
	if err != nil {
		l.logger.Debug("transaction rejected",
			"sender", p.Sender,
			"receiver", p.Receiver,
			"amount", p.Amount.String(),
			"error", err,
		)
		l.plugins.EmitTransactionRejected(ctx, tx, err)
		return nil, err
	}

	if !queued {
		l.journalFull()
	}
	l.plugins.EmitTransactionCommitted(ctx, tx.Copy())

	l.logger.Debug("transaction committed",
		"tx_id", tx.ID.String(),
		"kind", string(tx.Kind),
		"sender", tx.Sender,
		"receiver", tx.Receiver,
		"amount", tx.Amount.String(),
		"fee", tx.Fee.String(),
		"tax", tx.Tax.String(),
		"seq", tx.Seq,
	)

	return tx.Copy(), nil
}

// submit is the check-then-act critical section. On rejection the returned
// transaction, if any, is the one that failed authorization. The commit is
// journaled before the lock is released.
func (l *Ledger) submit(p Proposal) (*transaction.Transaction, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sender, okFrom := l.state.book.Get(p.Sender)
	receiver, okTo := l.state.book.Get(p.Receiver)
	if !okFrom {
		return nil, false, fmt.Errorf("sender %s: %w", p.Sender, ErrNotFound)
	}
	if !okTo {
		return nil, false, fmt.Errorf("receiver %s: %w", p.Receiver, ErrNotFound)
	}

	quote := l.quote(p.Anchor, p.Amount)

	txID := p.ID
	if txID.IsNil() {
		txID = id.NewTransactionID()
	}
	if _, dup := l.state.txs[txID.String()]; dup {
		return nil, false, fmt.Errorf("transaction %s: %w", txID, ErrDuplicateID)
	}

	kind := transaction.KindTransfer
	if sender.IsIssuer() {
		kind = transaction.KindIssuance
	}
	anchorID, _ := p.Anchor.ID()

	tx := &transaction.Transaction{
		ID:        txID,
		Kind:      kind,
		Sender:    p.Sender,
		Receiver:  p.Receiver,
		Amount:    p.Amount,
		Fee:       quote.Fee,
		Tax:       quote.Tax,
		AnchorID:  anchorID,
		Timestamp: p.Timestamp.UTC(),
		Signature: append([]byte(nil), p.Signature...),
	}

	if err := l.auth.Authorize(tx, sender, receiver); err != nil {
		return tx, false, err
	}

	l.state.apply(tx, sender, receiver)
	queued := l.enqueue(journalEntry{tx: tx, addresses: []string{tx.Sender, tx.Receiver}})
	return tx, queued, nil
}

// Mint issues amount to receiver from the issuer account. The issuance is
// an ordinary signed transaction, so replayed balances stay exact.
func (l *Ledger) Mint(ctx context.Context, receiver string, amount types.Money) (*transaction.Transaction, error) {
	if l.issuer == nil {
		return nil, ErrNoIssuer
	}
	tx, err := l.Prepare(ctx, l.IssuerAddress(), receiver, amount, NoAnchor)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(l.issuer); err != nil {
		return nil, err
	}
	return l.Submit(ctx, ProposalOf(tx))
}

// quote resolves the charges for ref. NoAnchor and an id nobody has
// registered both charge nothing.
func (l *Ledger) quote(ref AnchorRef, amount types.Money) anchor.Quote {
	anchorID, _ := ref.ID()
	return l.anchors.Quote(anchorID, amount)
}

// now is the timestamp given to new transactions. Microsecond precision
// survives every store backend unchanged, which keeps signatures valid
// across a restore.
func (l *Ledger) now() time.Time {
	return l.clock().UTC().Truncate(time.Microsecond)
}

// openAccount must be called with l.mu held.
func (l *Ledger) openAccount(address string, kind account.Kind) (*account.Account, error) {
	a, err := l.state.book.Open(address, kind)
	if err != nil {
		return nil, err
	}
	return a.Copy(), nil
}
