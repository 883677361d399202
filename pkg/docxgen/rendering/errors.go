// Package rendering holds the caller-facing error type and the warning set
// shared by the renderers.
package rendering

import (
	"errors"
	"fmt"
)

// Error is the only error type surfaced by the generator. Message is short
// and safe to show to end users; Detail carries the internal diagnostic.
type Error struct {
	Message string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Diagnostic returns the detailed message, or the short one when no detail
// was recorded.
func (e *Error) Diagnostic() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error with an optional detailed message.
func New(message string, detail ...string) *Error {
	e := &Error{Message: message}
	if len(detail) > 0 {
		e.Detail = detail[0]
	}
	return e
}

// Newf creates an error whose short message is formatted.
func Newf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new error.
func Wrap(cause error, message string, detail ...string) *Error {
	e := New(message, detail...)
	e.Cause = cause
	return e
}

// From converts any error into an *Error. Errors that already are (or wrap)
// an *Error are returned unchanged.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return &Error{Message: err.Error(), Cause: err}
}

// Is reports whether err is, or wraps, a rendering error.
func Is(err error) bool {
	var re *Error
	return errors.As(err, &re)
}
