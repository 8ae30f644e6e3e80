package anchor_test

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/types"
)

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRegisterBounds(t *testing.T) {
	tests := []struct {
		name    string
		spread  string
		tax     string
		wantErr error
	}{
		{"lower bounds", "0", "0", nil},
		{"upper bounds", "7", "100", nil},
		{"typical", "5", "2", nil},
		{"fractional spread", "2.5", "0.25", nil},
		{"spread above max", "8", "0", types.ErrInvalidRange},
		{"spread just above max", "7.0001", "0", types.ErrInvalidRange},
		{"negative spread", "-1", "0", types.ErrInvalidRange},
		{"tax above max", "0", "101", types.ErrInvalidRange},
		{"negative tax", "0", "-0.5", types.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := anchor.NewRegistry()
			a, err := r.Register("anc1", pct(tt.spread), pct(tt.tax))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, a)
				assert.Equal(t, 0, r.Len(), "rejected anchor must not be stored")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "anc1", a.ID)
			assert.True(t, a.Spread.Equal(pct(tt.spread)))
			assert.True(t, a.TaxRate.Equal(pct(tt.tax)))
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := anchor.NewRegistry()
	_, err := r.Register("anc1", pct("5"), pct("2"))
	require.NoError(t, err)

	_, err = r.Register("anc1", pct("1"), pct("1"))
	require.ErrorIs(t, err, types.ErrDuplicateID)

	got, ok := r.Get("anc1")
	require.True(t, ok)
	assert.True(t, got.Spread.Equal(pct("5")), "original anchor is untouched")
}

func TestRegisterEmptyID(t *testing.T) {
	_, err := anchor.NewRegistry().Register("", pct("1"), pct("1"))
	require.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestRegisterDefault(t *testing.T) {
	r := anchor.NewRegistry()
	a, err := r.RegisterDefault("anc1")
	require.NoError(t, err)
	assert.True(t, a.Spread.Equal(anchor.DefaultSpread))
	assert.True(t, a.TaxRate.Equal(anchor.DefaultTaxRate))
}

func TestFeeAndTax(t *testing.T) {
	r := anchor.NewRegistry()
	_, err := r.Register("anc1", pct("5"), pct("2"))
	require.NoError(t, err)

	amount := types.MustParseMoney("200", "n1c")
	assert.Equal(t, types.MustParseMoney("10", "n1c"), r.Fee("anc1", amount))
	assert.Equal(t, types.MustParseMoney("4", "n1c"), r.Tax("anc1", amount))

	q := r.Quote("anc1", amount)
	assert.Equal(t, types.MustParseMoney("10", "n1c"), q.Fee)
	assert.Equal(t, types.MustParseMoney("4", "n1c"), q.Tax)
	assert.Equal(t, types.MustParseMoney("14", "n1c"), q.Total())
}

func TestUnknownAnchorChargesNothing(t *testing.T) {
	r := anchor.NewRegistry()
	amount := types.N1C(12345)

	assert.True(t, r.Fee("nope", amount).IsZero())
	assert.True(t, r.Tax("nope", amount).IsZero())
	q := r.Quote("nope", amount)
	assert.True(t, q.Total().IsZero())
	assert.Equal(t, "n1c", q.Fee.Currency)
}

func TestGetReturnsCopy(t *testing.T) {
	r := anchor.NewRegistry()
	_, err := r.Register("anc1", pct("5"), pct("2"))
	require.NoError(t, err)

	a, ok := r.Get("anc1")
	require.True(t, ok)
	a.Spread = pct("99")

	again, _ := r.Get("anc1")
	assert.True(t, again.Spread.Equal(pct("5")))

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestListSorted(t *testing.T) {
	r := anchor.NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		_, err := r.RegisterDefault(id)
		require.NoError(t, err)
	}

	var ids []string
	for _, a := range r.List() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestRestore(t *testing.T) {
	r := anchor.NewRegistry()
	_, err := r.RegisterDefault("old")
	require.NoError(t, err)

	err = r.Restore([]*anchor.Anchor{
		{ID: "a", Spread: pct("1"), TaxRate: pct("0")},
		{ID: "b", Spread: pct("7"), TaxRate: pct("100")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	_, ok := r.Get("old")
	assert.False(t, ok)

	err = r.Restore([]*anchor.Anchor{{ID: "bad", Spread: pct("8"), TaxRate: pct("0")}})
	require.ErrorIs(t, err, types.ErrInvalidRange)
	assert.Equal(t, 2, r.Len(), "failed restore leaves registry unchanged")

	err = r.Restore([]*anchor.Anchor{
		{ID: "x", Spread: pct("1"), TaxRate: pct("0")},
		{ID: "x", Spread: pct("2"), TaxRate: pct("0")},
	})
	require.ErrorIs(t, err, types.ErrDuplicateID)
}

func TestConcurrentQuotes(t *testing.T) {
	r := anchor.NewRegistry()
	_, err := r.Register("anc1", pct("5"), pct("2"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				_, _ = r.RegisterDefault("extra" + string(rune('a'+i)))
				return
			}
			q := r.Quote("anc1", types.MustParseMoney("200", "n1c"))
			assert.Equal(t, types.MustParseMoney("14", "n1c"), q.Total())
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, r.Len())
}
