package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden           = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized        = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict            = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrAccessDenied        = New("ACCESS_DENIED", http.StatusForbidden, "access denied")
	ErrInvalidTransition   = New("INVALID_TRANSITION", http.StatusConflict, "illegal state transition")
	ErrConcurrencyConflict = New("CONCURRENCY_CONFLICT", http.StatusConflict, "concurrent modification, retry")
	ErrInvalidSort         = New("INVALID_SORT", http.StatusBadRequest, "invalid sort option")
	ErrConsentNotGranted   = New("CONSENT_NOT_GRANTED", http.StatusConflict, "no active consent grant")
	ErrCacheMiss           = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
)

// Denied builds an access-denied error carrying a machine-readable reason
// (e.g. "insufficient_access_level") for the presentation layer.
func Denied(reason string) *Error {
	return &Error{
		Code:    ErrAccessDenied.Code,
		Status:  ErrAccessDenied.Status,
		Message: reason,
	}
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target. Predefined errors
// compare by code so that Clone-ed variants still match.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
