// Package apperr defines the error kinds returned by the domain services.
//
// Every domain failure is an *Error whose Kind is one of the sentinels below,
// so callers branch with errors.Is and show Message to the user as is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrPermission   = errors.New("permission denied")
	ErrValidation   = errors.New("validation failed")
)

type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) error {
	return newError(ErrInvalidState, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

func Permission(format string, args ...interface{}) error {
	return newError(ErrPermission, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// HTTPStatus maps an error kind to its response status. Unknown errors are 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Label names the kind of err for metrics: "ok" for nil, "error" for
// unclassified failures.
func Label(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

// Message returns the user-facing text for err, hiding internal failures.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
