package transaction

import (
	"strconv"
	"strings"
	"time"

	"github.com/xraph/n1c/signing"
)

// CanonicalMessage is the byte string a sender signs:
//
//	id|sender|receiver|amount|fee|timestamp|tax|anchor
//
// Amounts are minor-unit integers and the timestamp is RFC 3339 in UTC with
// nanoseconds. The signature itself is excluded.
func CanonicalMessage(t *Transaction) []byte {
	var b strings.Builder
	b.WriteString(t.ID.String())
	b.WriteByte('|')
	b.WriteString(t.Sender)
	b.WriteByte('|')
	b.WriteString(t.Receiver)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(t.Amount.Amount, 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(t.Fee.Amount, 10))
	b.WriteByte('|')
	b.WriteString(t.Timestamp.UTC().Format(time.RFC3339Nano))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(t.Tax.Amount, 10))
	b.WriteByte('|')
	b.WriteString(t.AnchorID)
	return []byte(b.String())
}

// Sign signs the canonical message with priv and stores the signature on t.
func (t *Transaction) Sign(priv signing.PrivateKey) error {
	sig, err := signing.Sign(CanonicalMessage(t), priv)
	if err != nil {
		return err
	}
	t.Signature = sig
	return nil
}

// VerifySignature reports whether t carries a valid signature by pub.
func (t *Transaction) VerifySignature(pub signing.PublicKey) bool {
	return signing.Verify(CanonicalMessage(t), t.Signature, pub)
}
