package n1c_test

import (
	"context"
	"crypto/rand"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/n1c"
	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/signing"
	"github.com/xraph/n1c/store"
	"github.com/xraph/n1c/store/file"
	"github.com/xraph/n1c/store/memory"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

func newLedger(t *testing.T, s store.Store, opts ...n1c.Option) (*n1c.Ledger, signing.PrivateKey) {
	t.Helper()
	_, issuer, err := signing.GenerateKey(rand.Reader)
	require.NoError(t, err)
	l, err := n1c.New(s, append([]n1c.Option{n1c.WithIssuer(issuer)}, opts...)...)
	require.NoError(t, err)
	return l, issuer
}

func wallet(t *testing.T, l *n1c.Ledger) string {
	t.Helper()
	a, err := l.CreateWallet(context.Background())
	require.NoError(t, err)
	return a.Address
}

func send(t *testing.T, l *n1c.Ledger, from, to string, amount int64, ref n1c.AnchorRef) (*transaction.Transaction, error) {
	t.Helper()
	ctx := context.Background()
	tx, err := l.Prepare(ctx, from, to, types.N1C(amount), ref)
	if err != nil {
		return nil, err
	}
	priv, ok := l.Keyring().PrivateKey(from)
	require.True(t, ok)
	require.NoError(t, tx.Sign(priv))
	return l.Submit(ctx, n1c.ProposalOf(tx))
}

func balance(t *testing.T, l *n1c.Ledger, address string) int64 {
	t.Helper()
	m, err := l.GetBalance(context.Background(), address)
	require.NoError(t, err)
	return m.Amount
}

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// funded returns a ledger with an anchor charging 5% spread and 2% tax, a
// sender holding 1000 units and an empty receiver.
func funded(t *testing.T) (l *n1c.Ledger, alice, bob string) {
	t.Helper()
	ctx := context.Background()
	l, _ = newLedger(t, nil)
	_, err := l.RegisterAnchor(ctx, "anchor-eu", rate("5"), rate("2"))
	require.NoError(t, err)

	alice, bob = wallet(t, l), wallet(t, l)
	_, err = l.Mint(ctx, alice, types.N1C(1000))
	require.NoError(t, err)
	return l, alice, bob
}

func TestTransferWithAnchor(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)

	tx, err := send(t, l, alice, bob, 200, n1c.AnchorRefOf("anchor-eu"))
	require.NoError(t, err)

	assert.Equal(t, types.N1C(10), tx.Fee)
	assert.Equal(t, types.N1C(4), tx.Tax)
	assert.Equal(t, transaction.KindTransfer, tx.Kind)
	assert.Equal(t, int64(2), tx.Seq)

	assert.Equal(t, int64(786), balance(t, l, alice))
	assert.Equal(t, int64(200), balance(t, l, bob))
	assert.True(t, l.VerifyIntegrity(ctx))

	history, err := l.History(ctx, alice)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, tx.ID, history[1].ID)

	got, err := l.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.Signature, got.Signature)
}

func TestInsufficientBalanceLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)
	_, err := send(t, l, alice, bob, 200, n1c.AnchorRefOf("anchor-eu"))
	require.NoError(t, err)

	_, err = send(t, l, bob, alice, 500, n1c.NoAnchor)
	require.ErrorIs(t, err, n1c.ErrInsufficientBalance)
	assert.True(t, n1c.IsAuthorizationError(err))

	assert.Equal(t, int64(786), balance(t, l, alice))
	assert.Equal(t, int64(200), balance(t, l, bob))
	history, err := l.History(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Len(t, l.ListTransactions(ctx, transaction.ListOpts{}), 2)
}

func TestChargesCountAgainstBalance(t *testing.T) {
	l, alice, bob := funded(t)

	// 960 + 48 + 19 exceeds 1000 although the amount alone does not.
	_, err := send(t, l, alice, bob, 960, n1c.AnchorRefOf("anchor-eu"))
	require.ErrorIs(t, err, n1c.ErrInsufficientBalance)
	assert.Equal(t, int64(1000), balance(t, l, alice))
}

func TestDuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)

	tx, err := l.Prepare(ctx, alice, bob, types.N1C(100), n1c.NoAnchor)
	require.NoError(t, err)
	priv, _ := l.Keyring().PrivateKey(alice)
	require.NoError(t, tx.Sign(priv))

	_, err = l.Submit(ctx, n1c.ProposalOf(tx))
	require.NoError(t, err)
	_, err = l.Submit(ctx, n1c.ProposalOf(tx))
	require.ErrorIs(t, err, n1c.ErrDuplicateID)

	assert.Equal(t, int64(900), balance(t, l, alice))
	assert.Equal(t, int64(100), balance(t, l, bob))
}

func TestBadSignatureRejected(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)

	t.Run("WrongKey", func(t *testing.T) {
		tx, err := l.Prepare(ctx, alice, bob, types.N1C(100), n1c.NoAnchor)
		require.NoError(t, err)
		bobKey, _ := l.Keyring().PrivateKey(bob)
		require.NoError(t, tx.Sign(bobKey))

		_, err = l.Submit(ctx, n1c.ProposalOf(tx))
		require.ErrorIs(t, err, n1c.ErrInvalidSignature)
	})

	t.Run("TamperedAmount", func(t *testing.T) {
		tx, err := l.Prepare(ctx, alice, bob, types.N1C(100), n1c.NoAnchor)
		require.NoError(t, err)
		priv, _ := l.Keyring().PrivateKey(alice)
		require.NoError(t, tx.Sign(priv))

		p := n1c.ProposalOf(tx)
		p.Amount = types.N1C(999)
		_, err = l.Submit(ctx, p)
		require.ErrorIs(t, err, n1c.ErrInvalidSignature)
	})

	t.Run("FeeSignedWithoutAnchor", func(t *testing.T) {
		tx, err := l.Prepare(ctx, alice, bob, types.N1C(100), n1c.AnchorRefOf("anchor-eu"))
		require.NoError(t, err)
		priv, _ := l.Keyring().PrivateKey(alice)
		require.NoError(t, tx.Sign(priv))

		p := n1c.ProposalOf(tx)
		p.Anchor = n1c.NoAnchor
		_, err = l.Submit(ctx, p)
		require.ErrorIs(t, err, n1c.ErrInvalidSignature)
	})

	t.Run("Unsigned", func(t *testing.T) {
		tx, err := l.Prepare(ctx, alice, bob, types.N1C(100), n1c.NoAnchor)
		require.NoError(t, err)
		_, err = l.Submit(ctx, n1c.ProposalOf(tx))
		require.ErrorIs(t, err, n1c.ErrInvalidSignature)
	})

	assert.Equal(t, int64(1000), balance(t, l, alice))
	assert.Equal(t, int64(0), balance(t, l, bob))
	assert.Len(t, l.ListTransactions(ctx, transaction.ListOpts{}), 1)
	assert.True(t, l.VerifyIntegrity(ctx))
}

func TestMalformedProposals(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)
	priv, _ := l.Keyring().PrivateKey(alice)

	tests := []struct {
		name   string
		mutate func(*transaction.Transaction)
	}{
		{"ZeroAmount", func(tx *transaction.Transaction) { tx.Amount = types.N1C(0) }},
		{"NegativeAmount", func(tx *transaction.Transaction) { tx.Amount = types.N1C(-5) }},
		{"SelfTransfer", func(tx *transaction.Transaction) { tx.Receiver = tx.Sender }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := l.Prepare(ctx, alice, bob, types.N1C(100), n1c.NoAnchor)
			require.NoError(t, err)
			tt.mutate(tx)
			require.NoError(t, tx.Sign(priv))

			_, err = l.Submit(ctx, n1c.ProposalOf(tx))
			require.ErrorIs(t, err, n1c.ErrMalformedTransaction)
		})
	}
	assert.Equal(t, int64(1000), balance(t, l, alice))
}

func TestUnknownParties(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)

	_, err := l.Prepare(ctx, alice, "n1c_unknown", types.N1C(10), n1c.NoAnchor)
	require.ErrorIs(t, err, n1c.ErrNotFound)

	_, err = l.Submit(ctx, n1c.Proposal{Sender: "n1c_unknown", Receiver: bob, Amount: types.N1C(10)})
	require.ErrorIs(t, err, n1c.ErrNotFound)
}

func TestUnregisteredAnchorChargesNothing(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)

	tx, err := send(t, l, alice, bob, 10, n1c.AnchorRefOf("anchor-nowhere"))
	require.NoError(t, err)
	assert.True(t, tx.Fee.IsZero())
	assert.True(t, tx.Tax.IsZero())
	assert.Equal(t, "anchor-nowhere", tx.AnchorID)

	assert.Equal(t, int64(990), balance(t, l, alice))
	assert.Equal(t, int64(10), balance(t, l, bob))
	assert.True(t, l.VerifyIntegrity(ctx))
}

func TestEmptySenderRejected(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)

	_, err := send(t, l, bob, alice, 500, n1c.NoAnchor)
	require.ErrorIs(t, err, n1c.ErrInsufficientBalance)

	assert.Equal(t, int64(1000), balance(t, l, alice))
	assert.Equal(t, int64(0), balance(t, l, bob))
	history, err := l.History(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Len(t, l.ListTransactions(ctx, transaction.ListOpts{}), 1)
}

func TestRegisterDefaultAnchor(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)

	a, err := l.RegisterDefaultAnchor(ctx, "anchor-default")
	require.NoError(t, err)
	assert.True(t, a.Spread.Equal(anchor.DefaultSpread))
	assert.True(t, a.TaxRate.Equal(anchor.DefaultTaxRate))

	_, err = l.RegisterDefaultAnchor(ctx, "anchor-default")
	require.ErrorIs(t, err, n1c.ErrDuplicateID)

	tx, err := send(t, l, alice, bob, 100, n1c.AnchorRefOf("anchor-default"))
	require.NoError(t, err)
	assert.Equal(t, types.N1C(2), tx.Fee)
	assert.True(t, tx.Tax.IsZero())
	assert.Equal(t, int64(898), balance(t, l, alice))
}

func TestRegisterAnchorBounds(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, nil)

	_, err := l.RegisterAnchor(ctx, "too-wide", rate("8"), rate("0"))
	require.ErrorIs(t, err, n1c.ErrInvalidRange)
	_, err = l.RegisterAnchor(ctx, "too-taxed", rate("0"), rate("101"))
	require.ErrorIs(t, err, n1c.ErrInvalidRange)
	_, err = l.RegisterAnchor(ctx, "negative", rate("-1"), rate("0"))
	require.ErrorIs(t, err, n1c.ErrInvalidRange)

	_, err = l.RegisterAnchor(ctx, "free", rate("0"), rate("0"))
	require.NoError(t, err)
	_, err = l.RegisterAnchor(ctx, "edge", rate("7"), rate("100"))
	require.NoError(t, err)
	_, err = l.RegisterAnchor(ctx, "edge", rate("1"), rate("1"))
	require.ErrorIs(t, err, n1c.ErrDuplicateID)

	anchors := l.ListAnchors(ctx)
	require.Len(t, anchors, 2)
	assert.Equal(t, "edge", anchors[0].ID)

	_, err = l.GetAnchor(ctx, "too-wide")
	require.ErrorIs(t, err, n1c.ErrNotFound)
}

func TestOpenAccount(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, nil)

	_, pub := mustKey(t)
	addr := signing.AddressFromPublicKey(pub)

	a, err := l.OpenAccount(ctx, addr)
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero())
	assert.Equal(t, account.KindStandard, a.Kind)

	_, err = l.OpenAccount(ctx, addr)
	require.ErrorIs(t, err, n1c.ErrDuplicateID)

	_, err = l.OpenAccount(ctx, "not-an-address")
	require.Error(t, err)

	_, err = l.GetAccount(ctx, "n1c_missing")
	assert.True(t, n1c.IsNotFound(err))
}

func mustKey(t *testing.T) (signing.PrivateKey, signing.PublicKey) {
	t.Helper()
	pub, priv, err := signing.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return priv, pub
}

func TestExternalSigner(t *testing.T) {
	ctx := context.Background()
	priv, pub := mustKey(t)
	addr := signing.AddressFromPublicKey(pub)

	keys := signing.NewKeyring()
	require.NoError(t, keys.AddPublic(addr, pub))

	l, _ := newLedger(t, nil, n1c.WithKeyResolver(keys))
	_, err := l.OpenAccount(ctx, addr)
	require.NoError(t, err)
	bob := wallet(t, l)
	_, err = l.Mint(ctx, addr, types.N1C(50))
	require.NoError(t, err)

	tx, err := l.Prepare(ctx, addr, bob, types.N1C(20), n1c.NoAnchor)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(priv))
	_, err = l.Submit(ctx, n1c.ProposalOf(tx))
	require.NoError(t, err)

	assert.Equal(t, int64(30), balance(t, l, addr))
}

func TestMint(t *testing.T) {
	ctx := context.Background()

	t.Run("NoIssuer", func(t *testing.T) {
		l, err := n1c.New(nil)
		require.NoError(t, err)
		a, err := l.CreateWallet(ctx)
		require.NoError(t, err)

		_, err = l.Mint(ctx, a.Address, types.N1C(1))
		require.ErrorIs(t, err, n1c.ErrNoIssuer)
		assert.Empty(t, l.IssuerAddress())
	})

	t.Run("Issuance", func(t *testing.T) {
		l, _, _ := funded(t)
		issuer, err := l.GetAccount(ctx, l.IssuerAddress())
		require.NoError(t, err)
		assert.True(t, issuer.IsIssuer())
		assert.Equal(t, int64(-1000), issuer.Balance.Amount)

		txs := l.ListTransactions(ctx, transaction.ListOpts{})
		require.Len(t, txs, 1)
		assert.Equal(t, transaction.KindIssuance, txs[0].Kind)
	})
}

func TestSupplyAndBurn(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)

	_, err := send(t, l, alice, bob, 200, n1c.AnchorRefOf("anchor-eu"))
	require.NoError(t, err)
	_, err = send(t, l, bob, alice, 100, n1c.AnchorRefOf("anchor-eu"))
	require.NoError(t, err)

	// 14 burned on the first transfer, 5+2 on the second.
	assert.Equal(t, types.N1C(21), l.TotalBurned(ctx))
	assert.Equal(t, types.N1C(1000-21), l.TotalSupply(ctx))
}

func TestListTransactionsPaging(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)
	carol := wallet(t, l)

	for i := 0; i < 4; i++ {
		_, err := send(t, l, alice, bob, 10, n1c.NoAnchor)
		require.NoError(t, err)
	}
	_, err := send(t, l, alice, carol, 10, n1c.NoAnchor)
	require.NoError(t, err)

	assert.Len(t, l.ListTransactions(ctx, transaction.ListOpts{}), 6)
	assert.Len(t, l.ListTransactions(ctx, transaction.ListOpts{Address: bob}), 4)

	page := l.ListTransactions(ctx, transaction.ListOpts{Address: alice, Limit: 2, Offset: 1})
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].Seq)
	assert.Equal(t, int64(3), page[1].Seq)
}

func TestConcurrentSpendNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)
	priv, _ := l.Keyring().PrivateKey(alice)

	const workers = 100
	var (
		wg        sync.WaitGroup
		committed atomic.Int64
		rejected  atomic.Int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := l.Prepare(ctx, alice, bob, types.N1C(20), n1c.NoAnchor)
			if err != nil {
				return
			}
			if err := tx.Sign(priv); err != nil {
				return
			}
			if _, err := l.Submit(ctx, n1c.ProposalOf(tx)); err != nil {
				rejected.Add(1)
				return
			}
			committed.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), committed.Load())
	assert.Equal(t, int64(50), rejected.Load())
	assert.Equal(t, int64(0), balance(t, l, alice))
	assert.Equal(t, int64(1000), balance(t, l, bob))
	assert.True(t, l.VerifyIntegrity(ctx))

	// Seq is dense in commit order.
	for i, tx := range l.ListTransactions(ctx, transaction.ListOpts{}) {
		assert.Equal(t, int64(i+1), tx.Seq)
	}
}

func TestIntegrityReportConsistent(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)
	_, err := send(t, l, alice, bob, 200, n1c.AnchorRefOf("anchor-eu"))
	require.NoError(t, err)

	report := l.IntegrityReport(ctx)
	assert.True(t, report.Consistent)
	assert.Empty(t, report.Violations)
	assert.Equal(t, 3, report.Accounts)
	assert.Equal(t, 2, report.Transactions)

	got, err := l.RecomputeBalance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(786), got.Amount)

	_, err = l.RecomputeBalance(ctx, "n1c_missing")
	require.ErrorIs(t, err, n1c.ErrNotFound)
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) store.Store{
		"Memory": func(*testing.T) store.Store { return memory.New() },
		"File": func(t *testing.T) store.Store {
			s, err := file.Open(filepath.Join(t.TempDir(), "ledger.msgpack"))
			require.NoError(t, err)
			return s
		},
	}
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			_, issuer, err := signing.GenerateKey(rand.Reader)
			require.NoError(t, err)

			l, err := n1c.New(s, n1c.WithIssuer(issuer))
			require.NoError(t, err)
			_, err = l.RegisterAnchor(ctx, "anchor-eu", rate("5"), rate("2"))
			require.NoError(t, err)
			alice, bob := wallet(t, l), wallet(t, l)
			_, err = l.Mint(ctx, alice, types.N1C(1000))
			require.NoError(t, err)
			sent, err := send(t, l, alice, bob, 200, n1c.AnchorRefOf("anchor-eu"))
			require.NoError(t, err)
			require.NoError(t, l.Flush(ctx))

			restored, err := n1c.New(s, n1c.WithIssuer(issuer))
			require.NoError(t, err)
			require.NoError(t, restored.Restore(ctx))

			assert.Equal(t, int64(786), balance(t, restored, alice))
			assert.Equal(t, int64(200), balance(t, restored, bob))
			assert.Equal(t, types.N1C(14), restored.TotalBurned(ctx))
			assert.True(t, restored.VerifyIntegrity(ctx))

			got, err := restored.GetTransaction(ctx, sent.ID)
			require.NoError(t, err)
			assert.True(t, got.Timestamp.Equal(sent.Timestamp))
			assert.Equal(t, sent.Seq, got.Seq)

			a, err := restored.GetAnchor(ctx, "anchor-eu")
			require.NoError(t, err)
			assert.True(t, a.Spread.Equal(rate("5")))

			// The next commit continues the sequence.
			next, err := restored.Mint(ctx, bob, types.N1C(1))
			require.NoError(t, err)
			assert.Equal(t, int64(3), next.Seq)
		})
	}
}

func TestRestoreRejectsCorruptStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l, issuer := newLedger(t, s)
	alice := wallet(t, l)
	_, err := l.Mint(ctx, alice, types.N1C(1000))
	require.NoError(t, err)
	require.NoError(t, l.Flush(ctx))

	stored, err := s.GetAccount(ctx, alice)
	require.NoError(t, err)
	stored.Balance = types.N1C(5000)
	require.NoError(t, s.SaveAccounts(ctx, []*account.Account{stored}))

	restored, err := n1c.New(s, n1c.WithIssuer(issuer))
	require.NoError(t, err)
	err = restored.Restore(ctx)
	require.ErrorIs(t, err, n1c.ErrIntegrityViolation)

	// Nothing was replaced.
	assert.Len(t, restored.ListAccounts(ctx), 1)
}

func TestBackgroundPersistence(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l, _ := newLedger(t, s, n1c.WithPersistConfig(1, 10*time.Millisecond))
	require.NoError(t, l.Start(ctx))
	require.ErrorIs(t, l.Start(ctx), n1c.ErrAlreadyStarted)

	alice := wallet(t, l)
	_, err := l.Mint(ctx, alice, types.N1C(300))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		a, err := s.GetAccount(ctx, alice)
		return err == nil && a.Balance.Amount == 300
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, l.Stop())
	require.ErrorIs(t, l.Stop(), n1c.ErrNotStarted)
}

// Every flush must leave the store self-consistent: a stored history never
// names a transaction the store does not hold, even while commits race it.
func TestFlushDuringConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l, issuer := newLedger(t, s, n1c.WithPersistConfig(1000, time.Hour))
	require.NoError(t, l.Start(ctx))
	defer func() { require.NoError(t, l.Stop()) }()

	const senders = 4
	wallets := make([]string, senders)
	for i := range wallets {
		wallets[i] = wallet(t, l)
		_, err := l.Mint(ctx, wallets[i], types.N1C(1000))
		require.NoError(t, err)
	}
	sink := wallet(t, l)

	var wg sync.WaitGroup
	done := make(chan struct{})
	for _, from := range wallets {
		wg.Add(1)
		go func(from string) {
			defer wg.Done()
			priv, _ := l.Keyring().PrivateKey(from)
			for i := 0; i < 200; i++ {
				tx, err := l.Prepare(ctx, from, sink, types.N1C(1), n1c.NoAnchor)
				if err != nil {
					return
				}
				if err := tx.Sign(priv); err != nil {
					return
				}
				if _, err := l.Submit(ctx, n1c.ProposalOf(tx)); err != nil {
					return
				}
			}
		}(from)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	stored := func() {
		require.NoError(t, l.Flush(ctx))
		txs, err := s.ListTransactions(ctx, transaction.ListOpts{})
		require.NoError(t, err)
		known := make(map[string]struct{}, len(txs))
		for _, tx := range txs {
			known[tx.ID.String()] = struct{}{}
		}
		accounts, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		for _, a := range accounts {
			for _, txID := range a.History {
				_, ok := known[txID.String()]
				require.True(t, ok, "account %s references unsaved transaction %s", a.Address, txID)
			}
		}
	}

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		stored()
	}

	restored, err := n1c.New(s, n1c.WithIssuer(issuer))
	require.NoError(t, err)
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, int64(senders*200), balance(t, restored, sink))
}

func TestProposalWithoutID(t *testing.T) {
	ctx := context.Background()
	l, alice, bob := funded(t)
	priv, _ := l.Keyring().PrivateKey(alice)

	// The id is part of the signed message, so a proposal without one can
	// only carry a signature made over the nil id.
	tx := &transaction.Transaction{
		Kind:      transaction.KindTransfer,
		Sender:    alice,
		Receiver:  bob,
		Amount:    types.N1C(10),
		Fee:       types.N1C(0),
		Tax:       types.N1C(0),
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, tx.Sign(priv))
	p := n1c.ProposalOf(tx)
	require.True(t, p.ID.IsNil())

	_, err := l.Submit(ctx, p)
	require.ErrorIs(t, err, n1c.ErrInvalidSignature)
}

// recorder collects hook calls.
type recorder struct {
	mu        sync.Mutex
	committed []string
	rejected  []error
	opened    int
	anchors   int
	checks    []bool
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) OnAccountOpened(context.Context, *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
	return nil
}

func (r *recorder) OnAnchorRegistered(context.Context, *anchor.Anchor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchors++
	return nil
}

func (r *recorder) OnTransactionCommitted(_ context.Context, tx *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, tx.ID.String())
	return nil
}

func (r *recorder) OnTransactionRejected(_ context.Context, _ *transaction.Transaction, reason error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, reason)
	return nil
}

func (r *recorder) OnIntegrityChecked(_ context.Context, consistent bool, _ int, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, consistent)
	return nil
}

func TestPluginHooks(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	l, _ := newLedger(t, nil, n1c.WithPlugin(rec))

	_, err := l.RegisterAnchor(ctx, "anchor-eu", rate("5"), rate("2"))
	require.NoError(t, err)
	alice, bob := wallet(t, l), wallet(t, l)
	minted, err := l.Mint(ctx, alice, types.N1C(100))
	require.NoError(t, err)
	_, err = send(t, l, bob, alice, 50, n1c.NoAnchor)
	require.Error(t, err)
	l.VerifyIntegrity(ctx)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.opened)
	assert.Equal(t, 1, rec.anchors)
	assert.Equal(t, []string{minted.ID.String()}, rec.committed)
	require.Len(t, rec.rejected, 1)
	assert.ErrorIs(t, rec.rejected[0], n1c.ErrInsufficientBalance)
	assert.Equal(t, []bool{true}, rec.checks)
}
