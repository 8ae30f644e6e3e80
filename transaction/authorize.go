package transaction

import (
	"fmt"
	"math"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/signing"
	"github.com/xraph/n1c/types"
)

// Authorizer validates proposed transactions against account state without
// mutating anything. The same inputs always produce the same verdict.
type Authorizer struct {
	// MaxAmount caps a single transfer. Zero means no cap.
	MaxAmount types.Money
	// Keys resolves sender addresses to public keys.
	Keys signing.KeyResolver
}

// NewAuthorizer returns an Authorizer with the given key resolver and cap.
func NewAuthorizer(keys signing.KeyResolver, maxAmount types.Money) *Authorizer {
	return &Authorizer{MaxAmount: maxAmount, Keys: keys}
}

// Authorize runs every check against tx and the resolved accounts of its
// parties, in this order: resolution, balance, signature, structure. The
// first failure is returned.
func (a *Authorizer) Authorize(tx *Transaction, sender, receiver *account.Account) error {
	if tx == nil {
		return types.ValidationError{Field: "transaction", Message: "missing"}
	}
	if sender == nil {
		return fmt.Errorf("sender %s: %w", tx.Sender, types.ErrNotFound)
	}
	if receiver == nil {
		return fmt.Errorf("receiver %s: %w", tx.Receiver, types.ErrNotFound)
	}

	if err := a.checkBalance(tx, sender); err != nil {
		return err
	}
	if err := a.checkSignature(tx); err != nil {
		return err
	}
	return a.checkStructure(tx, sender, receiver)
}

func (a *Authorizer) checkBalance(tx *Transaction, sender *account.Account) error {
	if sender.IsIssuer() {
		return nil
	}
	total, ok := total(tx, sender.Balance.Currency)
	if !ok {
		// Unpriceable in the sender's currency; left to the structural check.
		return nil
	}
	if sender.Balance.Amount < total {
		return fmt.Errorf("%s holds %s, needs %s: %w", sender.Address, sender.Balance,
			types.Money{Amount: total, Currency: sender.Balance.Currency}, types.ErrInsufficientBalance)
	}
	return nil
}

func (a *Authorizer) checkSignature(tx *Transaction) error {
	if a.Keys == nil {
		return fmt.Errorf("no key resolver for %s: %w", tx.Sender, types.ErrInvalidSignature)
	}
	pub, ok := a.Keys.PublicKey(tx.Sender)
	if !ok {
		return fmt.Errorf("no public key for %s: %w", tx.Sender, types.ErrInvalidSignature)
	}
	if !tx.VerifySignature(pub) {
		return fmt.Errorf("transaction %s: %w", tx.ID, types.ErrInvalidSignature)
	}
	return nil
}

func (a *Authorizer) checkStructure(tx *Transaction, sender, receiver *account.Account) error {
	currency := sender.Balance.Currency
	switch {
	case tx.ID.IsNil() || tx.ID.Prefix() != id.PrefixTransaction:
		return types.ValidationError{Field: "id", Message: "must be a transaction id"}
	case tx.Sender != sender.Address:
		return types.ValidationError{Field: "sender", Message: "does not match the resolved account"}
	case tx.Receiver != receiver.Address:
		return types.ValidationError{Field: "receiver", Message: "does not match the resolved account"}
	case tx.Kind != KindTransfer && tx.Kind != KindIssuance:
		return types.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", tx.Kind)}
	case (tx.Kind == KindIssuance) != sender.IsIssuer():
		return types.ValidationError{Field: "kind", Message: "issuance must come from the issuer account"}
	case tx.Sender == tx.Receiver:
		return types.ValidationError{Field: "receiver", Message: "must differ from sender"}
	case tx.Amount.Currency != currency || receiver.Balance.Currency != currency:
		return types.ValidationError{Field: "amount", Message: fmt.Sprintf("currency must be %q", currency)}
	case tx.Fee.Currency != currency || tx.Tax.Currency != currency:
		return types.ValidationError{Field: "fee", Message: fmt.Sprintf("currency must be %q", currency)}
	case !tx.Amount.IsPositive():
		return types.ValidationError{Field: "amount", Message: "must be positive"}
	case a.MaxAmount.IsPositive() && tx.Amount.Amount > a.MaxAmount.Amount:
		return types.ValidationError{Field: "amount", Message: fmt.Sprintf("exceeds maximum %s", a.MaxAmount)}
	case tx.Fee.IsNegative():
		return types.ValidationError{Field: "fee", Message: "must not be negative"}
	case tx.Tax.IsNegative():
		return types.ValidationError{Field: "tax", Message: "must not be negative"}
	case tx.Timestamp.IsZero():
		return types.ValidationError{Field: "timestamp", Message: "missing"}
	}
	if _, ok := total(tx, currency); !ok {
		return types.ValidationError{Field: "amount", Message: "amount plus charges overflows"}
	}
	return nil
}

// total returns amount+fee+tax in minor units, or false when the parts are
// not all in currency or the sum overflows.
func total(tx *Transaction, currency string) (int64, bool) {
	if tx.Amount.Currency != currency || tx.Fee.Currency != currency || tx.Tax.Currency != currency {
		return 0, false
	}
	sum := tx.Amount.Amount
	for _, part := range []int64{tx.Fee.Amount, tx.Tax.Amount} {
		if (part > 0 && sum > math.MaxInt64-part) || (part < 0 && sum < math.MinInt64-part) {
			return 0, false
		}
		sum += part
	}
	return sum, true
}
