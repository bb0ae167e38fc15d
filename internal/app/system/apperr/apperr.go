// Package apperr defines the error kinds surfaced by StudyHub operations.
//
// Services return *Error values for caller-attributable failures
// (not found, not signed in, not allowed, bad input, duplicate) and wrap
// everything else as Internal. HTTP handlers map kinds to status codes;
// callers use Kind.Retryable to decide whether a retry can help.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	Internal Kind = iota
	NotFound
	Unauthenticated
	Forbidden
	InvalidArgument
	Conflict
)

var kindNames = map[Kind]string{
	Internal:        "internal",
	NotFound:        "not_found",
	Unauthenticated: "unauthenticated",
	Forbidden:       "forbidden",
	InvalidArgument: "invalid_argument",
	Conflict:        "conflict",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Retryable reports whether an operation failing with this kind may succeed
// when repeated unchanged.
func (k Kind) Retryable() bool {
	return k == Internal
}

// Error is a classified error with a stable, user-facing message.
type Error struct {
	Kind    Kind
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

// Is matches another *Error of the same kind, so errors.Is(err,
// apperr.ErrNotFound) works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons by kind.
var (
	ErrNotFound        = &Error{Kind: NotFound}
	ErrUnauthenticated = &Error{Kind: Unauthenticated}
	ErrForbidden       = &Error{Kind: Forbidden}
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrConflict        = &Error{Kind: Conflict}
	ErrInternal        = &Error{Kind: Internal}
)

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error { return newf(NotFound, format, args...) }
func Unauthenticatedf(format string, args ...any) error {
	return newf(Unauthenticated, format, args...)
}
func Forbiddenf(format string, args ...any) error { return newf(Forbidden, format, args...) }
func Invalidf(format string, args ...any) error   { return newf(InvalidArgument, format, args...) }
func Conflictf(format string, args ...any) error  { return newf(Conflict, format, args...) }

// Wrap classifies err as Internal with the given message.
// A nil err returns nil; an err that is already an *Error is returned as is.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: Internal, Message: msg, Err: err}
}

// KindOf returns the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Message returns the user-facing message for err. The cause of an
// Internal error is never included.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return "internal error"
}
