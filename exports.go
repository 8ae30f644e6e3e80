package n1c

import (
	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Re-export common types for convenience so users don't have to import every package.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// ID is the identifier type of transactions.
type ID = id.ID

// Account is re-exported from the account package.
type Account = account.Account

// Anchor is re-exported from the anchor package.
type Anchor = anchor.Anchor

// Transaction is re-exported from the transaction package.
type Transaction = transaction.Transaction

// Re-export Money constructors
var (
	N1C        = types.N1C
	ParseMoney = types.ParseMoney
	ParseRate  = types.ParseRate
	Zero       = types.Zero
	Sum        = types.Sum
)
