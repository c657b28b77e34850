// Package apperr defines the error taxonomy used across SagaPay services.
//
// Consumers and handlers branch on the kind of an error, never on its text:
// expected duplicates are swallowed, transient failures are retried in the
// worker, terminal failures produce a failed event plus a DLQ entry, and
// invariant violations are surfaced loudly and never dropped.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthorized
	KindRateLimited
	KindNotFound
	// KindDuplicate marks an expected-duplicate conflict: the work has already
	// been done (inbox hit, idempotent resubmit, stale CAS). Safe to swallow.
	KindDuplicate
	// KindConflict marks an unexpected conflict that the caller must handle.
	KindConflict
	KindTransient
	KindTerminal
	KindInvariantViolation
)

// Error is the concrete error type carried through service layers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a malformed or semantically invalid request.
func Validation(code, format string, args ...any) *Error {
	return newf(KindValidation, code, format, args...)
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, "UNAUTHORIZED", format, args...)
}

// RateLimited reports token-bucket exhaustion.
func RateLimited(format string, args ...any) *Error {
	return newf(KindRateLimited, "RATE_LIMITED", format, args...)
}

// NotFound reports a missing entity.
func NotFound(code, format string, args ...any) *Error {
	return newf(KindNotFound, code, format, args...)
}

// Duplicate reports an expected-duplicate conflict.
func Duplicate(code, format string, args ...any) *Error {
	return newf(KindDuplicate, code, format, args...)
}

// Conflict reports an unexpected conflict the caller must resolve.
func Conflict(code, format string, args ...any) *Error {
	return newf(KindConflict, code, format, args...)
}

// Transient wraps a retriable infrastructure failure.
func Transient(err error, format string, args ...any) *Error {
	e := newf(KindTransient, "TRANSIENT", format, args...)
	e.Err = err
	return e
}

// Terminal wraps a non-retryable failure that should be dead-lettered.
func Terminal(code string, err error, format string, args ...any) *Error {
	e := newf(KindTerminal, code, format, args...)
	e.Err = err
	return e
}

// Invariant reports a broken system invariant. Never swallowed.
func Invariant(code, format string, args ...any) *Error {
	return newf(KindInvariantViolation, code, format, args...)
}

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsDuplicate reports whether err is an expected-duplicate conflict.
func IsDuplicate(err error) bool { return KindOf(err) == KindDuplicate }

// IsTransient reports whether err should be retried by the caller.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }
