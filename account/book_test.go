package account_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/id"
	"github.com/xraph/n1c/types"
)

// transfer is a minimal Movement for replay tests.
type transfer struct {
	sender, receiver string
	amount, charges  int64
}

func (t transfer) Delta(address string) types.Money {
	var d int64
	if address == t.receiver {
		d += t.amount
	}
	if address == t.sender {
		d -= t.amount + t.charges
	}
	return types.N1C(d)
}

func TestOpen(t *testing.T) {
	b := account.NewBook(types.DefaultCurrency)

	a, err := b.Open("n1c_alice", account.KindStandard)
	require.NoError(t, err)
	assert.Equal(t, "n1c_alice", a.Address)
	assert.True(t, a.Balance.IsZero())
	assert.Equal(t, types.DefaultCurrency, a.Balance.Currency)
	assert.Empty(t, a.History)
	assert.False(t, a.IsIssuer())

	_, err = b.Open("n1c_alice", account.KindStandard)
	require.ErrorIs(t, err, types.ErrDuplicateID)

	_, err = b.Open("", account.KindStandard)
	require.ErrorIs(t, err, types.ErrInvalidInput)

	assert.Equal(t, 1, b.Len())
}

func TestPostAndReplay(t *testing.T) {
	b := account.NewBook(types.DefaultCurrency)
	alice, err := b.Open("n1c_alice", account.KindStandard)
	require.NoError(t, err)
	bob, err := b.Open("n1c_bob", account.KindStandard)
	require.NoError(t, err)

	txs := map[string]transfer{}
	post := func(tr transfer) {
		txID := id.NewTransactionID()
		txs[txID.String()] = tr
		sender, _ := b.Get(tr.sender)
		receiver, _ := b.Get(tr.receiver)
		sender.Post(txID, tr.Delta(tr.sender))
		receiver.Post(txID, tr.Delta(tr.receiver))
	}
	lookup := func(txID id.ID) (account.Movement, bool) {
		tr, ok := txs[txID.String()]
		return tr, ok
	}

	post(transfer{sender: "n1c_bob", receiver: "n1c_alice", amount: 1000})
	post(transfer{sender: "n1c_alice", receiver: "n1c_bob", amount: 200, charges: 14})

	assert.Equal(t, types.N1C(786), alice.Balance)
	assert.Equal(t, types.N1C(-800), bob.Balance)
	assert.Len(t, alice.History, 2)
	assert.Len(t, bob.History, 2)

	for _, a := range []*account.Account{alice, bob} {
		got, err := b.Replay(a, lookup)
		require.NoError(t, err)
		assert.Equal(t, a.Balance, got, a.Address)
	}
}

func TestReplayUnknownTransaction(t *testing.T) {
	b := account.NewBook(types.DefaultCurrency)
	a, err := b.Open("n1c_alice", account.KindStandard)
	require.NoError(t, err)
	a.Post(id.NewTransactionID(), types.N1C(5))

	_, err = b.Replay(a, func(id.ID) (account.Movement, bool) { return nil, false })
	require.ErrorIs(t, err, types.ErrIntegrityViolation)
}

func TestCopyIsDeep(t *testing.T) {
	b := account.NewBook(types.DefaultCurrency)
	a, err := b.Open("n1c_alice", account.KindIssuer)
	require.NoError(t, err)
	a.Post(id.NewTransactionID(), types.N1C(1))

	c := a.Copy()
	c.History[0] = id.Nil
	c.Balance = types.N1C(99)

	assert.False(t, a.History[0].IsNil())
	assert.Equal(t, types.N1C(1), a.Balance)
	assert.True(t, c.IsIssuer())
}

func TestListAndEach(t *testing.T) {
	b := account.NewBook(types.DefaultCurrency)
	for _, addr := range []string{"n1c_c", "n1c_a", "n1c_b"} {
		_, err := b.Open(addr, account.KindStandard)
		require.NoError(t, err)
	}

	var listed []string
	for _, a := range b.List() {
		listed = append(listed, a.Address)
	}
	assert.Equal(t, []string{"n1c_a", "n1c_b", "n1c_c"}, listed)

	var visited []string
	b.Each(func(a *account.Account) bool {
		visited = append(visited, a.Address)
		return a.Address != "n1c_b"
	})
	assert.Equal(t, []string{"n1c_a", "n1c_b"}, visited)
}

func TestRestore(t *testing.T) {
	b := account.NewBook(types.DefaultCurrency)
	_, err := b.Open("n1c_old", account.KindStandard)
	require.NoError(t, err)

	err = b.Restore([]*account.Account{
		{Address: "n1c_a", Kind: account.KindStandard, Balance: types.N1C(5)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
	got, ok := b.Get("n1c_a")
	require.True(t, ok)
	assert.Equal(t, types.N1C(5), got.Balance)

	err = b.Restore([]*account.Account{
		{Address: "n1c_a", Balance: types.N1C(1)},
		{Address: "n1c_a", Balance: types.N1C(2)},
	})
	require.ErrorIs(t, err, types.ErrDuplicateID)

	err = b.Restore([]*account.Account{{Address: "n1c_usd", Balance: types.USD(1)}})
	require.ErrorIs(t, err, types.ErrInvalidInput)
	assert.Equal(t, 1, b.Len(), "failed restore leaves book unchanged")
}
