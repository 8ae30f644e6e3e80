// Package observability provides a metrics extension for the n1c ledger
// that records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/plugin"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnAccountOpened        = (*MetricsExtension)(nil)
	_ plugin.OnAnchorRegistered     = (*MetricsExtension)(nil)
	_ plugin.OnTransactionCommitted = (*MetricsExtension)(nil)
	_ plugin.OnTransactionRejected  = (*MetricsExtension)(nil)
	_ plugin.OnBalanceRecomputed    = (*MetricsExtension)(nil)
	_ plugin.OnIntegrityChecked     = (*MetricsExtension)(nil)
	_ plugin.OnPersistFlushed       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide lifecycle metrics.
// Register it as a ledger plugin to track commits, rejections and
// consistency checks.
type MetricsExtension struct {
	factory MetricFactory

	// Registration metrics
	AccountsOpened    Counter
	AnchorsRegistered Counter

	// Transaction metrics
	TransactionsCommitted Counter
	TransactionsIssued    Counter
	TransactionAmount     Histogram
	FeesBurned            Counter
	TaxesBurned           Counter

	// Rejection metrics, by reason
	RejectedBalance   Counter
	RejectedSignature Counter
	RejectedMalformed Counter
	RejectedNotFound  Counter
	RejectedDuplicate Counter

	// Consistency metrics
	BalancesRecomputed  Counter
	BalancesCorrected   Counter
	IntegrityChecks     Counter
	IntegrityViolations Counter
	IntegrityLatency    Histogram

	// Persistence metrics
	PersistFlushes      Counter
	PersistBatchSize    Histogram
	PersistFlushLatency Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Registration metrics
		AccountsOpened:    factory.Counter("n1c.account.opened"),
		AnchorsRegistered: factory.Counter("n1c.anchor.registered"),

		// Transaction metrics
		TransactionsCommitted: factory.Counter("n1c.transaction.committed"),
		TransactionsIssued:    factory.Counter("n1c.transaction.issued"),
		TransactionAmount:     factory.Histogram("n1c.transaction.amount"),
		FeesBurned:            factory.Counter("n1c.transaction.fees_burned"),
		TaxesBurned:           factory.Counter("n1c.transaction.taxes_burned"),

		// Rejection metrics
		RejectedBalance:   factory.Counter("n1c.transaction.rejected.insufficient_balance"),
		RejectedSignature: factory.Counter("n1c.transaction.rejected.invalid_signature"),
		RejectedMalformed: factory.Counter("n1c.transaction.rejected.malformed"),
		RejectedNotFound:  factory.Counter("n1c.transaction.rejected.not_found"),
		RejectedDuplicate: factory.Counter("n1c.transaction.rejected.duplicate"),

		// Consistency metrics
		BalancesRecomputed:  factory.Counter("n1c.balance.recomputed"),
		BalancesCorrected:   factory.Counter("n1c.balance.corrected"),
		IntegrityChecks:     factory.Counter("n1c.integrity.checks"),
		IntegrityViolations: factory.Counter("n1c.integrity.violations"),
		IntegrityLatency:    factory.Histogram("n1c.integrity.latency_ms"),

		// Persistence metrics
		PersistFlushes:      factory.Counter("n1c.persist.flushes"),
		PersistBatchSize:    factory.Histogram("n1c.persist.batch.size"),
		PersistFlushLatency: factory.Histogram("n1c.persist.flush.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Registration hooks
// ──────────────────────────────────────────────────

// OnAccountOpened implements plugin.OnAccountOpened.
func (m *MetricsExtension) OnAccountOpened(_ context.Context, _ *account.Account) error {
	m.AccountsOpened.Inc()
	return nil
}

// OnAnchorRegistered implements plugin.OnAnchorRegistered.
func (m *MetricsExtension) OnAnchorRegistered(_ context.Context, _ *anchor.Anchor) error {
	m.AnchorsRegistered.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionCommitted implements plugin.OnTransactionCommitted.
func (m *MetricsExtension) OnTransactionCommitted(_ context.Context, tx *transaction.Transaction) error {
	m.TransactionsCommitted.Inc()
	if tx.Kind == transaction.KindIssuance {
		m.TransactionsIssued.Inc()
	}
	m.TransactionAmount.Observe(float64(tx.Amount.Amount))
	m.FeesBurned.Add(float64(tx.Fee.Amount))
	m.TaxesBurned.Add(float64(tx.Tax.Amount))
	return nil
}

// OnTransactionRejected implements plugin.OnTransactionRejected.
func (m *MetricsExtension) OnTransactionRejected(_ context.Context, _ *transaction.Transaction, reason error) error {
	switch {
	case errors.Is(reason, types.ErrInsufficientBalance):
		m.RejectedBalance.Inc()
	case errors.Is(reason, types.ErrInvalidSignature):
		m.RejectedSignature.Inc()
	case errors.Is(reason, types.ErrMalformedTransaction):
		m.RejectedMalformed.Inc()
	case errors.Is(reason, types.ErrNotFound):
		m.RejectedNotFound.Inc()
	case errors.Is(reason, types.ErrDuplicateID):
		m.RejectedDuplicate.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Consistency hooks
// ──────────────────────────────────────────────────

// OnBalanceRecomputed implements plugin.OnBalanceRecomputed.
func (m *MetricsExtension) OnBalanceRecomputed(_ context.Context, _ string, previous, current types.Money) error {
	m.BalancesRecomputed.Inc()
	if !previous.Equal(current) {
		m.BalancesCorrected.Inc()
	}
	return nil
}

// OnIntegrityChecked implements plugin.OnIntegrityChecked.
func (m *MetricsExtension) OnIntegrityChecked(_ context.Context, _ bool, violations int, elapsed time.Duration) error {
	m.IntegrityChecks.Inc()
	m.IntegrityViolations.Add(float64(violations))
	m.IntegrityLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// ──────────────────────────────────────────────────
// Persistence hooks
// ──────────────────────────────────────────────────

// OnPersistFlushed implements plugin.OnPersistFlushed.
func (m *MetricsExtension) OnPersistFlushed(_ context.Context, transactions int, elapsed time.Duration) error {
	m.PersistFlushes.Inc()
	m.PersistBatchSize.Observe(float64(transactions))
	m.PersistFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
