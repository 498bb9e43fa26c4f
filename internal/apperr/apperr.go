// Package apperr defines the error type used across cronos
package apperr

import (
	"errors"
	"fmt"
)

// Error is an application error with an optional message template and an
// underlying cause.
type Error struct {
	Cause   error
	Message string
	Context []any
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Context) > 0 {
		msg = fmt.Sprintf(e.Message, e.Context...)
	}

	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same message template, so that a
// formatted or wrapped copy still matches its package-level sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Message == e.Message
}

// Fmt returns a copy of the error with the message template filled in.
func (e *Error) Fmt(args ...any) *Error {
	return &Error{
		Message: e.Message,
		Context: args,
		Cause:   e.Cause,
	}
}

// Wrap returns a copy of the error that wraps cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{
		Message: e.Message,
		Context: e.Context,
		Cause:   cause,
	}
}
