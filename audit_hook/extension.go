// Package audithook bridges ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/n1c/account"
	"github.com/xraph/n1c/anchor"
	"github.com/xraph/n1c/plugin"
	"github.com/xraph/n1c/transaction"
	"github.com/xraph/n1c/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnAccountOpened        = (*Extension)(nil)
	_ plugin.OnAnchorRegistered     = (*Extension)(nil)
	_ plugin.OnTransactionCommitted = (*Extension)(nil)
	_ plugin.OnTransactionRejected  = (*Extension)(nil)
	_ plugin.OnBalanceRecomputed    = (*Extension)(nil)
	_ plugin.OnIntegrityChecked     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Registration hooks
// ──────────────────────────────────────────────────

// OnAccountOpened implements plugin.OnAccountOpened.
func (e *Extension) OnAccountOpened(ctx context.Context, a *account.Account) error {
	return e.record(ctx, ActionAccountOpened, SeverityInfo, OutcomeSuccess,
		ResourceAccount, a.Address, CategoryRegistration, nil,
		"kind", string(a.Kind),
	)
}

// OnAnchorRegistered implements plugin.OnAnchorRegistered.
func (e *Extension) OnAnchorRegistered(ctx context.Context, a *anchor.Anchor) error {
	return e.record(ctx, ActionAnchorRegistered, SeverityInfo, OutcomeSuccess,
		ResourceAnchor, a.ID, CategoryRegistration, nil,
		"spread", a.Spread.String(),
		"tax_rate", a.TaxRate.String(),
	)
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionCommitted implements plugin.OnTransactionCommitted.
func (e *Extension) OnTransactionCommitted(ctx context.Context, tx *transaction.Transaction) error {
	action, category := ActionTransactionCommitted, CategoryTransfer
	if tx.Kind == transaction.KindIssuance {
		action, category = ActionTransactionIssued, CategoryIssuance
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, tx.ID.String(), category, nil,
		"sender", tx.Sender,
		"receiver", tx.Receiver,
		"amount", tx.Amount.String(),
		"fee", tx.Fee.String(),
		"tax", tx.Tax.String(),
		"anchor_id", tx.AnchorID,
		"seq", tx.Seq,
	)
}

// OnTransactionRejected implements plugin.OnTransactionRejected.
func (e *Extension) OnTransactionRejected(ctx context.Context, tx *transaction.Transaction, reason error) error {
	severity := SeverityWarning
	if errors.Is(reason, types.ErrInvalidSignature) {
		severity = SeverityError
	}

	var kv []any
	resourceID := ""
	if tx != nil {
		resourceID = tx.ID.String()
		kv = append(kv,
			"sender", tx.Sender,
			"receiver", tx.Receiver,
			"amount", tx.Amount.String(),
		)
	}
	return e.record(ctx, ActionTransactionRejected, severity, OutcomeFailure,
		ResourceTransaction, resourceID, CategoryTransfer, reason,
		kv...,
	)
}

// ──────────────────────────────────────────────────
// Consistency hooks
// ──────────────────────────────────────────────────

// OnBalanceRecomputed implements plugin.OnBalanceRecomputed.
// A recompute that changed the balance is recorded as a correction.
func (e *Extension) OnBalanceRecomputed(ctx context.Context, address string, previous, current types.Money) error {
	action, severity := ActionBalanceRecomputed, SeverityInfo
	if !previous.Equal(current) {
		action, severity = ActionBalanceCorrected, SeverityCritical
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceAccount, address, CategoryConsistency, nil,
		"previous", previous.String(),
		"current", current.String(),
	)
}

// OnIntegrityChecked implements plugin.OnIntegrityChecked.
func (e *Extension) OnIntegrityChecked(ctx context.Context, consistent bool, violations int, elapsed time.Duration) error {
	if consistent {
		return e.record(ctx, ActionIntegrityChecked, SeverityInfo, OutcomeSuccess,
			ResourceLedger, "", CategoryConsistency, nil,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}
	return e.record(ctx, ActionIntegrityFailed, SeverityCritical, OutcomeFailure,
		ResourceLedger, "", CategoryConsistency,
		fmt.Errorf("%d violations: %w", violations, types.ErrIntegrityViolation),
		"violations", violations,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
