// Package errors defines the domain errors returned by services and stores.
//
// Services return *Error values; the HTTP layer maps them to a status code with
// Kind.HTTPStatus and never looks at the wrapped cause.
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    return nil, errors.NotFound("User not found")
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-exported so callers need a single errors import.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

// Kind classifies a domain error.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindDuplicateOwnership Kind = "DUPLICATE_OWNERSHIP"
	KindConflict           Kind = "CONFLICT"
	KindValidation         Kind = "VALIDATION"
	KindUnavailable        Kind = "UNAVAILABLE"
	KindInternal           Kind = "INTERNAL"
)

// HTTPStatus returns the status code a response should carry for this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateOwnership, KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// HTTPStatus returns the status code for this error's kind.
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, cause: err}
}

// Sentinels for errors.Is.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrDuplicateOwnership = &Error{Kind: KindDuplicateOwnership, Message: "already owned"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflict"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation error"}
	ErrUnavailable        = &Error{Kind: KindUnavailable, Message: "unavailable"}
	ErrInternal           = &Error{Kind: KindInternal, Message: "internal error"}
)

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func DuplicateOwnership(msg string) *Error {
	return &Error{Kind: KindDuplicateOwnership, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Unavailable reports a capability this deployment does not provide.
func Unavailable(msg string) *Error {
	return &Error{Kind: KindUnavailable, Message: msg}
}

// Internal wraps an infrastructure fault. The message is what clients see.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}
