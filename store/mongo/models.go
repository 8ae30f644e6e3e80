package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:n1c_accounts"`

	Address   string    `grove:"address,pk"  bson:"_id"`
	Kind      string    `grove:"kind"        bson:"kind"`
	Balance   int64     `grove:"balance"     bson:"balance"`
	Currency  string    `grove:"currency"    bson:"currency"`
	History   []string  `grove:"history"     bson:"history"`
	CreatedAt time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	history := make([]string, len(a.History))
	for i, txID := range a.History {
		history[i] = txID.String()
	}
	return &accountModel{
		Address:   a.Address,
		Kind:      string(a.Kind),
		Balance:   a.Balance.Amount,
		Currency:  a.Balance.Currency,
		History:   history,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	history := make([]id.ID, len(m.History))
	for i, s := range m.History {
		txID, err := id.ParseTransactionID(s)
		if err != nil {
			return nil, fmt.Errorf("account %s history: %w", m.Address, err)
		}
		history[i] = txID
	}

	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		Address: m.Address,
		Kind:    account.Kind(m.Kind),
		Balance: types.Money{Amount: m.Balance, Currency: m.Currency},
		History: history,
	}, nil
}

// ==================== Transaction models ====================

// BSON dates keep milliseconds only, so the timestamp travels as
// RFC 3339 text; the signature covers it at full precision.
type transactionModel struct {
	grove.BaseModel `grove:"table:n1c_transactions"`

	ID        string `grove:"id,pk"      bson:"_id"`
	Seq       int64  `grove:"seq"        bson:"seq"`
	Kind      string `grove:"kind"       bson:"kind"`
	Sender    string `grove:"sender"     bson:"sender"`
	Receiver  string `grove:"receiver"   bson:"receiver"`
	Amount    int64  `grove:"amount"     bson:"amount"`
	Fee       int64  `grove:"fee"        bson:"fee"`
	Tax       int64  `grove:"tax"        bson:"tax"`
	Currency  string `grove:"currency"   bson:"currency"`
	AnchorID  string `grove:"anchor_id"  bson:"anchor_id,omitempty"`
	Timestamp string `grove:"timestamp"  bson:"timestamp"`
	Signature []byte `grove:"signature"  bson:"signature"`
}

func toTransactionModel(tx *transaction.Transaction) *transactionModel {
	return &transactionModel{
		ID:        tx.ID.String(),
		Seq:       tx.Seq,
		Kind:      string(tx.Kind),
		Sender:    tx.Sender,
		Receiver:  tx.Receiver,
		Amount:    tx.Amount.Amount,
		Fee:       tx.Fee.Amount,
		Tax:       tx.Tax.Amount,
		Currency:  tx.Amount.Currency,
		AnchorID:  tx.AnchorID,
		Timestamp: tx.Timestamp.UTC().Format(time.RFC3339Nano),
		Signature: tx.Signature,
	}
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	txID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("transaction %s timestamp: %w", m.ID, err)
	}

	return &transaction.Transaction{
		ID:        txID,
		Kind:      transaction.Kind(m.Kind),
		Sender:    m.Sender,
		Receiver:  m.Receiver,
		Amount:    types.Money{Amount: m.Amount, Currency: m.Currency},
		Fee:       types.Money{Amount: m.Fee, Currency: m.Currency},
		Tax:       types.Money{Amount: m.Tax, Currency: m.Currency},
		AnchorID:  m.AnchorID,
		Timestamp: ts.UTC(),
		Signature: m.Signature,
		Seq:       m.Seq,
	}, nil
}

// ==================== Anchor models ====================

type anchorModel struct {
	grove.BaseModel `grove:"table:n1c_anchors"`

	ID        string    `grove:"id,pk"       bson:"_id"`
	Spread    string    `grove:"spread"      bson:"spread"`
	TaxRate   string    `grove:"tax_rate"    bson:"tax_rate"`
	CreatedAt time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toAnchorModel(a *anchor.Anchor) *anchorModel {
	return &anchorModel{
		ID:        a.ID,
		Spread:    a.Spread.String(),
		TaxRate:   a.TaxRate.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAnchorModel(m *anchorModel) (*anchor.Anchor, error) {
	spread, err := decimal.NewFromString(m.Spread)
	if err != nil {
		return nil, fmt.Errorf("anchor %s spread: %w", m.ID, err)
	}
	taxRate, err := decimal.NewFromString(m.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("anchor %s tax rate: %w", m.ID, err)
	}

	return &anchor.Anchor{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:      m.ID,
		Spread:  spread,
		TaxRate: taxRate,
	}, nil
}
