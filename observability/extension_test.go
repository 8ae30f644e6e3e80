package observability_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/n1c/observability"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

type metric struct {
	mu       sync.Mutex
	total    float64
	observed []float64
}

func (m *metric) Inc() { m.Add(1) }

func (m *metric) Add(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += v
}

func (m *metric) Observe(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, v)
}

type factory struct {
	metrics map[string]*metric
}

func newFactory() *factory { return &factory{metrics: map[string]*metric{}} }

func (f *factory) get(name string) *metric {
	m, ok := f.metrics[name]
	if !ok {
		m = &metric{}
		f.metrics[name] = m
	}
	return m
}

func (f *factory) Counter(name string) observability.Counter     { return f.get(name) }
func (f *factory) Histogram(name string) observability.Histogram { return f.get(name) }

func TestTransactionMetrics(t *testing.T) {
	f := newFactory()
	ext := observability.NewMetricsExtension(f)
	ctx := context.Background()

	tx := &transaction.Transaction{
		Kind:   transaction.KindTransfer,
		Amount: types.N1C(200),
		Fee:    types.N1C(10),
		Tax:    types.N1C(4),
	}
	assert.NoError(t, ext.OnTransactionCommitted(ctx, tx))

	assert.Equal(t, 1.0, f.get("n1c.transaction.committed").total)
	assert.Equal(t, 0.0, f.get("n1c.transaction.issued").total)
	assert.Equal(t, 10.0, f.get("n1c.transaction.fees_burned").total)
	assert.Equal(t, 4.0, f.get("n1c.transaction.taxes_burned").total)
	assert.Equal(t, []float64{200}, f.get("n1c.transaction.amount").observed)
}

func TestRejectionsByReason(t *testing.T) {
	f := newFactory()
	ext := observability.NewMetricsExtension(f)
	ctx := context.Background()

	reasons := []error{
		fmt.Errorf("alice: %w", types.ErrInsufficientBalance),
		types.ErrInvalidSignature,
		types.ValidationError{Field: "amount", Message: "must be positive"},
		fmt.Errorf("anchor: %w", types.ErrNotFound),
		types.ErrDuplicateID,
		types.ErrInsufficientBalance,
	}
	for _, r := range reasons {
		assert.NoError(t, ext.OnTransactionRejected(ctx, nil, r))
	}

	assert.Equal(t, 2.0, f.get("n1c.transaction.rejected.insufficient_balance").total)
	assert.Equal(t, 1.0, f.get("n1c.transaction.rejected.invalid_signature").total)
	assert.Equal(t, 1.0, f.get("n1c.transaction.rejected.malformed").total)
	assert.Equal(t, 1.0, f.get("n1c.transaction.rejected.not_found").total)
	assert.Equal(t, 1.0, f.get("n1c.transaction.rejected.duplicate").total)
}

func TestConsistencyMetrics(t *testing.T) {
	f := newFactory()
	ext := observability.NewMetricsExtension(f)
	ctx := context.Background()

	assert.NoError(t, ext.OnBalanceRecomputed(ctx, "n1c_a", types.N1C(1), types.N1C(1)))
	assert.NoError(t, ext.OnBalanceRecomputed(ctx, "n1c_a", types.N1C(9), types.N1C(1)))
	assert.NoError(t, ext.OnIntegrityChecked(ctx, false, 3, 2*time.Millisecond))
	assert.NoError(t, ext.OnPersistFlushed(ctx, 40, time.Millisecond))

	assert.Equal(t, 2.0, f.get("n1c.balance.recomputed").total)
	assert.Equal(t, 1.0, f.get("n1c.balance.corrected").total)
	assert.Equal(t, 3.0, f.get("n1c.integrity.violations").total)
	assert.Equal(t, []float64{40}, f.get("n1c.persist.batch.size").observed)
}
