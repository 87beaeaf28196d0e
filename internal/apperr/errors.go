// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindExternalService Kind = "external_service"
	KindInternal        Kind = "internal"
)

// Error carries a stable machine-readable code next to a human-readable message.
// Err is the underlying cause and is never rendered to clients.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors with the same kind and code, so wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation reports missing or invalid input.
func Validation(code, msg string) *Error { return newErr(KindValidation, code, msg) }

// Unauthorized reports an unauthenticated caller.
func Unauthorized(code, msg string) *Error { return newErr(KindUnauthorized, code, msg) }

// Forbidden reports a failed authorization predicate.
func Forbidden(code, msg string) *Error { return newErr(KindForbidden, code, msg) }

// NotFound reports a missing entity.
func NotFound(code, msg string) *Error { return newErr(KindNotFound, code, msg) }

// Conflict reports a capacity or duplicate-transition violation.
func Conflict(code, msg string) *Error { return newErr(KindConflict, code, msg) }

// External reports a failed call to a third-party provider. Always retryable.
func External(code, msg string, cause error) *Error {
	e := newErr(KindExternalService, code, msg)
	e.Retryable = true
	e.Err = cause
	return e
}

// Internal wraps an unexpected failure.
func Internal(cause error) *Error {
	e := newErr(KindInternal, "internal_error", "internal server error")
	e.Err = cause
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
