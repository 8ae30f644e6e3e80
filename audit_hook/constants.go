package audithook

// Action constants for audit events.
const (
	// Registration actions
	ActionAccountOpened    = "account.opened"
	ActionAnchorRegistered = "anchor.registered"

	// Transaction actions
	ActionTransactionCommitted = "transaction.committed"
	ActionTransactionIssued    = "transaction.issued"
	ActionTransactionRejected  = "transaction.rejected"

	// Consistency actions
	ActionBalanceRecomputed = "balance.recomputed"
	ActionBalanceCorrected  = "balance.corrected"
	ActionIntegrityChecked  = "integrity.checked"
	ActionIntegrityFailed   = "integrity.failed"
)

// Resource constants for audit events.
const (
	ResourceAccount     = "account"
	ResourceAnchor      = "anchor"
	ResourceTransaction = "transaction"
	ResourceLedger      = "ledger"
)

// Category constants for audit events.
const (
	CategoryRegistration = "registration"
	CategoryTransfer     = "transfer"
	CategoryIssuance     = "issuance"
	CategoryConsistency  = "consistency"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
