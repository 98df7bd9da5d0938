// Package errs defines the error kinds shared by the hierarchy, ledger and
// handler layers. Every error returned by a service carries one kind, so
// callers branch with errors.Is(err, errs.ErrValidation) and friends.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds
var (
	ErrValidation       = errors.New("validation error")
	ErrAuthentication   = errors.New("authentication error")
	ErrNotFound         = errors.New("not found")
	ErrCycle            = errors.New("cycle error")
	ErrHasChildren      = errors.New("has children")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrPersistence      = errors.New("persistence error")
)

// Error is a kind plus a human-readable message safe to show to end users.
// Field names the offending input field, if any. Err holds the underlying
// cause and is never shown.
type Error struct {
	Kind    error
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches the kind
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the cause
func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports missing or malformed input
func Validation(format string, args ...interface{}) error {
	return newf(ErrValidation, format, args...)
}

// InvalidField reports a rejected value of one input field. The message must
// not echo the value.
func InvalidField(field, format string, args ...interface{}) error {
	e := newf(ErrValidation, format, args...)
	e.Field = field
	return e
}

// Authentication reports a missing or invalid acting user
func Authentication(format string, args ...interface{}) error {
	return newf(ErrAuthentication, format, args...)
}

// NotFound reports an unknown id
func NotFound(format string, args ...interface{}) error {
	return newf(ErrNotFound, format, args...)
}

// Cycle reports a parent change that would make the tree cyclic
func Cycle(format string, args ...interface{}) error {
	return newf(ErrCycle, format, args...)
}

// HasChildren reports a delete blocked by child locations
func HasChildren(format string, args ...interface{}) error {
	return newf(ErrHasChildren, format, args...)
}

// InvalidOperation reports an operation that violates a tree invariant
func InvalidOperation(format string, args ...interface{}) error {
	return newf(ErrInvalidOperation, format, args...)
}

// Persistence wraps a storage failure. The message is generic on purpose;
// the cause stays in Err for logging.
func Persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Message: "failed to " + op, Err: err}
}

// Message returns the user-facing message of err. Errors without a kind get
// a generic message so internals never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Field returns the name of the offending input field, if the error has one
func Field(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
