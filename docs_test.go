package n1c_test

import (
	"context"
	"crypto/rand"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/n1c"
	"github.com/xraph/n1c/signing"
	"github.com/xraph/n1c/store/memory"
	"github.com/xraph/n1c/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation work as written.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		_, issuerKey, err := signing.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatal(err)
		}

		l, err := n1c.New(memory.New(),
			n1c.WithIssuer(issuerKey),
			n1c.WithLogger(slog.Default()),
			n1c.WithPersistConfig(100, 5*time.Second),
		)
		if err != nil {
			t.Fatal(err)
		}
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		alice, err := l.CreateWallet(ctx)
		if err != nil {
			t.Fatal(err)
		}
		bob, err := l.CreateWallet(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := l.Mint(ctx, alice.Address, n1c.N1C(1000)); err != nil {
			t.Fatal(err)
		}

		spread, _ := n1c.ParseRate("5")
		tax, _ := n1c.ParseRate("2")
		if _, err := l.RegisterAnchor(ctx, "anchor-eu", spread, tax); err != nil {
			t.Fatal(err)
		}

		tx, err := l.Prepare(ctx, alice.Address, bob.Address, n1c.N1C(200), n1c.AnchorRefOf("anchor-eu"))
		if err != nil {
			t.Fatal(err)
		}
		key, _ := l.Keyring().PrivateKey(alice.Address)
		if err := tx.Sign(key); err != nil {
			t.Fatal(err)
		}
		committed, err := l.Submit(ctx, n1c.ProposalOf(tx))
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("committed %s: fee %s, tax %s\n", committed.ID, committed.Fee, committed.Tax)

		balance, _ := l.GetBalance(ctx, alice.Address)
		if balance.Amount != 786 {
			t.Fatalf("alice holds %d, want 786", balance.Amount)
		}
		if !l.VerifyIntegrity(ctx) {
			t.Fatal("ledger inconsistent")
		}
	})

	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors: one n1c is 10^8 minor units.
		one := n1c.N1C(100000000)
		if !one.Equal(types.MustParseMoney("1", types.DefaultCurrency)) {
			t.Fatal("1 n1c mismatch")
		}
		_ = n1c.Zero("n1c")

		// Arithmetic
		m1 := n1c.N1C(100)
		m2 := n1c.N1C(200)
		_ = m1.Add(m2)
		_ = m2.Subtract(m1)

		// Rates round half to even: 2.5% of 100 units is 2.
		rate, _ := n1c.ParseRate("2.5")
		if got := m1.Percent(rate); got.Amount != 2 {
			t.Fatalf("2.5%% of 100 = %d, want 2", got.Amount)
		}

		// Formatting
		if got := n1c.N1C(1000000000).FormatMajor(); got != "10.00000000" {
			t.Fatalf("FormatMajor = %q", got)
		}
	})
}
