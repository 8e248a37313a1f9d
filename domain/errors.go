package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeUnavailable  ErrorCode = "UNAVAILABLE"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches domain errors by code and message so that wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Detail returns a copy of a sentinel error enriched with context. The copy
// still matches the sentinel through errors.Is.
func Detail(base *Error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Err:     fmt.Errorf(format, args...),
	}
}

// Common domain errors.
var (
	ErrSessionNotFound   = NewError(ErrCodeNotFound, "session not found")
	ErrRunNotFound       = NewError(ErrCodeNotFound, "schedule run not found")
	ErrMalformedInterval = NewError(ErrCodeInvalid, "malformed interval")
	ErrMalformedDate     = NewError(ErrCodeInvalid, "malformed date")
	ErrDuplicateID       = NewError(ErrCodeInvalid, "duplicate id")
	ErrInvalidPayload    = NewError(ErrCodeInvalid, "invalid payload")
	ErrRunInProgress     = NewError(ErrCodeConflict, "schedule run already in progress")
	ErrStaleAssignment   = NewError(ErrCodeConflict, "session changed since snapshot")
	ErrUnauthorized      = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrForbidden         = NewError(ErrCodeForbidden, "forbidden")
	ErrStoreUnavailable  = NewError(ErrCodeUnavailable, "store unavailable")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
