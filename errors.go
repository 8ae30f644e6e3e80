package n1c

import (
	"errors"

	"github.com/xraph/n1c/types"
)

// Sentinel errors, re-exported from the types package so callers can match
// them without a second import.
var (
	// General errors
	ErrNotFound     = types.ErrNotFound
	ErrDuplicateID  = types.ErrDuplicateID
	ErrInvalidInput = types.ErrInvalidInput

	// Anchor errors
	ErrInvalidRange = types.ErrInvalidRange

	// Authorization errors
	ErrInsufficientBalance  = types.ErrInsufficientBalance
	ErrInvalidSignature     = types.ErrInvalidSignature
	ErrMalformedTransaction = types.ErrMalformedTransaction

	// Signing errors
	ErrKey = types.ErrKey

	// Verification errors
	ErrIntegrityViolation = types.ErrIntegrityViolation

	// Store errors
	ErrStoreClosed       = types.ErrStoreClosed
	ErrPersistBufferFull = types.ErrPersistBufferFull

	// Lifecycle errors
	ErrNotStarted     = errors.New("n1c: ledger not started")
	ErrAlreadyStarted = errors.New("n1c: ledger already started")
	ErrNoIssuer       = errors.New("n1c: no issuer configured")
)

// ValidationError names the field that made a transaction malformed.
type ValidationError = types.ValidationError

// MultiError collects several errors.
type MultiError = types.MultiError

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthorizationError returns true if the proposal was rejected by
// authorization: the caller must build a new transaction to retry.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrMalformedTransaction)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistBufferFull)
}
