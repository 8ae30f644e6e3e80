// Package account keeps per-address balances and transaction histories.
//
// A Book is owned by the ledger and mutated only under the ledger's lock; it
// does no locking of its own. Accounts leave the package as copies.
package account

import (
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/types"
)

// Kind distinguishes ordinary accounts from the issuer that mints supply.
type Kind string

const (
	KindStandard Kind = "standard"
	KindIssuer   Kind = "issuer"
)

// Account is a holder's balance together with the ordered ids of every
// transaction that touched it.
type Account struct {
	types.Entity
	Address string      `json:"address"`
	Kind    Kind        `json:"kind"`
	Balance types.Money `json:"balance"`
	History []id.ID     `json:"history"`
}

// IsIssuer reports whether the account mints supply.
func (a *Account) IsIssuer() bool { return a.Kind == KindIssuer }

// Copy returns a deep copy.
func (a *Account) Copy() *Account {
	c := *a
	c.History = append([]id.ID(nil), a.History...)
	return &c
}

// Post applies delta and appends txID to the history.
func (a *Account) Post(txID id.ID, delta types.Money) {
	a.Balance = a.Balance.Add(delta)
	a.History = append(a.History, txID)
	a.Touch()
}

// Movement is a recorded transfer as seen by one of its parties.
type Movement interface {
	// Delta is the signed balance change the movement applies to address:
	// +amount for the receiver, -(amount+fee+tax) for the sender.
	Delta(address string) types.Money
}
