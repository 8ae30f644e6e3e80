// Package transaction defines ledger transfers and the pure authorization
// rules a proposed transfer must pass before the ledger commits it.
package transaction

import (
	"time"

	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/types"
)

// Kind distinguishes ordinary transfers from supply issuance.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindIssuance Kind = "issuance"
)

// Transaction is a recorded movement of value from Sender to Receiver.
// Fee and Tax are burned: debited from the sender and credited to no one.
// Once committed a transaction is never modified.
type Transaction struct {
	ID        id.TransactionID `json:"id"`
	Kind      Kind             `json:"kind"`
	Sender    string           `json:"sender"`
	Receiver  string           `json:"receiver"`
	Amount    types.Money      `json:"amount"`
	Fee       types.Money      `json:"fee"`
	Tax       types.Money      `json:"tax"`
	AnchorID  string           `json:"anchor_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Signature []byte           `json:"signature"`

	// Seq is the position in the ledger's commit order, assigned at commit
	// and not covered by the signature.
	Seq int64 `json:"seq"`
}

// Charges is fee plus tax.
func (t *Transaction) Charges() types.Money {
	return t.Fee.Add(t.Tax)
}

// Total is what the sender pays: amount plus fee plus tax.
func (t *Transaction) Total() types.Money {
	return t.Amount.Add(t.Fee).Add(t.Tax)
}

// Delta is the balance change t applies to address.
func (t *Transaction) Delta(address string) types.Money {
	d := types.Zero(t.Amount.Currency)
	if address == t.Receiver {
		d = d.Add(t.Amount)
	}
	if address == t.Sender {
		d = d.Subtract(t.Total())
	}
	return d
}

// Copy returns a deep copy.
func (t *Transaction) Copy() *Transaction {
	c := *t
	c.Signature = append([]byte(nil), t.Signature...)
	return &c
}

// ListOpts filters and pages ListTransactions. Results are in commit order.
type ListOpts struct {
	// Address restricts results to transactions where it is sender or receiver.
	Address string
	Limit   int
	Offset  int
}

// Matches reports whether t passes the address filter.
func (o ListOpts) Matches(t *Transaction) bool {
	return o.Address == "" || t.Sender == o.Address || t.Receiver == o.Address
}

// Page applies Offset and Limit to txs, which must already be filtered
// and in commit order.
func (o ListOpts) Page(txs []*Transaction) []*Transaction {
	start := o.Offset
	if start > len(txs) {
		start = len(txs)
	}
	end := len(txs)
	if o.Limit > 0 && start+o.Limit < end {
		end = start + o.Limit
	}
	return txs[start:end]
}
