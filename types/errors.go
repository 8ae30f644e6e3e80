package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for every failure the core can report. They live in this
// leaf package so that anchor, account and transaction can return them
// without importing the root package; the root package re-exports them.
var (
	// General errors
	ErrNotFound     = errors.New("n1c: not found")
	ErrDuplicateID  = errors.New("n1c: duplicate id")
	ErrInvalidInput = errors.New("n1c: invalid input")

	// Anchor errors
	ErrInvalidRange = errors.New("n1c: value outside permitted range")

	// Authorization errors
	ErrInsufficientBalance  = errors.New("n1c: insufficient balance")
	ErrInvalidSignature     = errors.New("n1c: invalid signature")
	ErrMalformedTransaction = errors.New("n1c: malformed transaction")

	// Signing errors
	ErrKey = errors.New("n1c: malformed key material")

	// Verification errors. Only surfaced by Restore; integrity checks report
	// violations as values.
	ErrIntegrityViolation = errors.New("n1c: integrity violation")

	// Store errors
	ErrStoreClosed       = errors.New("n1c: store is closed")
	ErrPersistBufferFull = errors.New("n1c: persist buffer full")
)

// ValidationError represents a structural validation failure with details.
// It unwraps to ErrMalformedTransaction.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("n1c: malformed transaction: %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrMalformedTransaction.
func (e ValidationError) Unwrap() error { return ErrMalformedTransaction }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "n1c: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("n1c: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrOrNil returns nil when no errors were collected.
func (e MultiError) ErrOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}
