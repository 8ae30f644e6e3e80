// Package anchor holds the fee and tax policy of ledger intermediaries.
//
// An anchor charges a spread (its fee) and a tax, both as percentages of the
// transferred amount. Anchors are immutable once registered.
package anchor

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/n1c/types"
)

// Permitted ranges, in percent, inclusive on both ends.
const (
	MinSpread  = 0
	MaxSpread  = 7
	MinTaxRate = 0
	MaxTaxRate = 100
)

// Defaults applied by RegisterDefault.
var (
	DefaultSpread  = decimal.NewFromInt(2)
	DefaultTaxRate = decimal.Zero
)

// Anchor is a registered intermediary.
type Anchor struct {
	types.Entity
	ID      string          `json:"id"`
	Spread  decimal.Decimal `json:"spread"`
	TaxRate decimal.Decimal `json:"tax_rate"`
}

// Fee returns the spread charged on amount.
func (a *Anchor) Fee(amount types.Money) types.Money {
	return amount.Percent(a.Spread)
}

// Tax returns the tax charged on amount.
func (a *Anchor) Tax(amount types.Money) types.Money {
	return amount.Percent(a.TaxRate)
}

// Quote is the fee and tax an anchor charges on one transfer.
type Quote struct {
	Fee types.Money
	Tax types.Money
}

// Total is fee plus tax.
func (q Quote) Total() types.Money { return q.Fee.Add(q.Tax) }
