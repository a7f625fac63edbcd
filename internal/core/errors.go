package core

import (
	"errors"
	"fmt"
)

// Sentinel causes for invariant-violating input. Wrapped in ValidationError
// so the HTTP layer can map them without knowing individual reasons.
var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyName      = errors.New("empty name")
	ErrEmptyPurpose   = errors.New("empty purpose")
	ErrExceedsPromise = errors.New("amount exceeds remaining promised amount")
	ErrExceedsEntry   = errors.New("amount exceeds remaining entry amount")
)

// ValidationError marks malformed or invariant-violating input. The reason is
// user-correctable and surfaced verbatim to the caller.
type ValidationError struct {
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return e.Cause }

// Invalidf builds a ValidationError with a formatted reason.
func Invalidf(cause error, format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...), Cause: cause}
}

// NotFoundError marks an id that does not resolve to a record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// StoreUnavailableError marks a persistence-layer failure. The wrapped cause
// is logged but never exposed to API callers.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
