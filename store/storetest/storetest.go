// Package storetest is a conformance suite for store.Store backends.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/store"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Factory returns an empty, migrated store. Run closes it.
type Factory func(t *testing.T) store.Store

// Run exercises every store.Store method against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("Accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("TransactionPaging", func(t *testing.T) { testTransactionPaging(t, newStore(t)) })
	t.Run("Anchors", func(t *testing.T) { testAnchors(t, newStore(t)) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, newStore(t)) })
}

// Fixture timestamps are truncated to microseconds, the precision every
// backend keeps.
var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleTx(seq int64, sender, receiver string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:        id.NewTransactionID(),
		Kind:      transaction.KindTransfer,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    types.N1C(200 * seq),
		Fee:       types.N1C(10),
		Tax:       types.N1C(4),
		AnchorID:  "anc1",
		Timestamp: epoch.Add(time.Duration(seq) * time.Microsecond),
		Signature: []byte{1, 2, 3, byte(seq)},
		Seq:       seq,
	}
}

func testAccounts(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	txID := id.NewTransactionID()
	alice := &account.Account{
		Entity:  types.Entity{CreatedAt: epoch, UpdatedAt: epoch},
		Address: "n1c_alice",
		Kind:    account.KindStandard,
		Balance: types.N1C(786),
		History: []id.ID{txID},
	}
	require.NoError(t, s.SaveAccounts(ctx, []*account.Account{alice}))

	got, err := s.GetAccount(ctx, "n1c_alice")
	require.NoError(t, err)
	assert.Equal(t, alice.Address, got.Address)
	assert.Equal(t, alice.Kind, got.Kind)
	assert.Equal(t, alice.Balance, got.Balance)
	require.Len(t, got.History, 1)
	assert.Equal(t, txID.String(), got.History[0].String())

	// Upsert replaces the stored state.
	alice.Balance = types.N1C(500)
	alice.History = append(alice.History, id.NewTransactionID())
	issuer := &account.Account{
		Entity:  types.Entity{CreatedAt: epoch, UpdatedAt: epoch},
		Address: "n1c_issuer",
		Kind:    account.KindIssuer,
		Balance: types.N1C(-1000),
	}
	require.NoError(t, s.SaveAccounts(ctx, []*account.Account{alice, issuer}))

	got, err = s.GetAccount(ctx, "n1c_alice")
	require.NoError(t, err)
	assert.Equal(t, types.N1C(500), got.Balance)
	assert.Len(t, got.History, 2)

	list, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n1c_alice", list[0].Address)
	assert.Equal(t, "n1c_issuer", list[1].Address)
	assert.True(t, list[1].IsIssuer())
	assert.Equal(t, types.N1C(-1000), list[1].Balance)

	_, err = s.GetAccount(ctx, "n1c_nobody")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func testTransactions(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	tx := sampleTx(1, "n1c_alice", "n1c_bob")
	require.NoError(t, s.SaveTransactions(ctx, []*transaction.Transaction{tx}))

	got, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID.String(), got.ID.String())
	assert.Equal(t, tx.Kind, got.Kind)
	assert.Equal(t, tx.Sender, got.Sender)
	assert.Equal(t, tx.Receiver, got.Receiver)
	assert.Equal(t, tx.Amount, got.Amount)
	assert.Equal(t, tx.Fee, got.Fee)
	assert.Equal(t, tx.Tax, got.Tax)
	assert.Equal(t, tx.AnchorID, got.AnchorID)
	assert.True(t, tx.Timestamp.Equal(got.Timestamp), "timestamp %s != %s", tx.Timestamp, got.Timestamp)
	assert.Equal(t, tx.Signature, got.Signature)
	assert.Equal(t, tx.Seq, got.Seq)

	// Saving again is a no-op, even with different content.
	changed := tx.Copy()
	changed.Amount = types.N1C(1)
	require.NoError(t, s.SaveTransactions(ctx, []*transaction.Transaction{changed}))
	got, err = s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.Amount, got.Amount)

	_, err = s.GetTransaction(ctx, id.NewTransactionID())
	require.ErrorIs(t, err, types.ErrNotFound)
}

func testTransactionPaging(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	txs := []*transaction.Transaction{
		sampleTx(3, "n1c_carol", "n1c_alice"),
		sampleTx(1, "n1c_alice", "n1c_bob"),
		sampleTx(2, "n1c_bob", "n1c_carol"),
		sampleTx(4, "n1c_alice", "n1c_carol"),
	}
	require.NoError(t, s.SaveTransactions(ctx, txs))

	all, err := s.ListTransactions(ctx, transaction.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, tx := range all {
		assert.Equal(t, int64(i+1), tx.Seq)
	}

	alice, err := s.ListTransactions(ctx, transaction.ListOpts{Address: "n1c_alice"})
	require.NoError(t, err)
	require.Len(t, alice, 3)
	assert.Equal(t, []int64{1, 3, 4}, seqs(alice))

	page, err := s.ListTransactions(ctx, transaction.ListOpts{Address: "n1c_alice", Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, seqs(page))

	past, err := s.ListTransactions(ctx, transaction.ListOpts{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func seqs(txs []*transaction.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, tx := range txs {
		out[i] = tx.Seq
	}
	return out
}

func testAnchors(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	b := &anchor.Anchor{
		Entity:  types.Entity{CreatedAt: epoch, UpdatedAt: epoch},
		ID:      "b",
		Spread:  decimal.RequireFromString("2.5"),
		TaxRate: decimal.RequireFromString("100"),
	}
	a := &anchor.Anchor{
		Entity:  types.Entity{CreatedAt: epoch, UpdatedAt: epoch},
		ID:      "a",
		Spread:  decimal.RequireFromString("0"),
		TaxRate: decimal.RequireFromString("0.125"),
	}
	require.NoError(t, s.SaveAnchor(ctx, b))
	require.NoError(t, s.SaveAnchor(ctx, a))

	list, err := s.ListAnchors(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.True(t, list[0].TaxRate.Equal(a.TaxRate))
	assert.True(t, list[1].Spread.Equal(b.Spread))
	assert.True(t, list[1].TaxRate.Equal(b.TaxRate))
}

func testClosed(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Ping(ctx), types.ErrStoreClosed)
	require.ErrorIs(t, s.SaveAccounts(ctx, nil), types.ErrStoreClosed)
	_, err := s.ListTransactions(ctx, transaction.ListOpts{})
	require.ErrorIs(t, err, types.ErrStoreClosed)
}
