// Package domainerrors provides coded domain errors. Services translate
// infrastructure sentinels (pkg/platform/sentinel) into these; the transport
// layer maps codes onto HTTP statuses and renders a stable {code, message}
// body without leaking internal detail.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error classification.
type Code string

const (
	CodeInvalidInput        Code = "invalid_input"
	CodeNotFound            Code = "not_found"
	CodeInternal            Code = "internal"
	CodeUnavailable         Code = "unavailable"
	CodeIdentityConflict    Code = "identity_conflict"
	CodeSignupFailed        Code = "signup_failed"
	CodePhoneNumberInvalid  Code = "phone_number_invalid"
	CodeAllocationExhausted Code = "allocation_exhausted"
)

var httpStatuses = map[Code]int{
	CodeInvalidInput:        http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeInternal:            http.StatusInternalServerError,
	CodeUnavailable:         http.StatusServiceUnavailable,
	CodeIdentityConflict:    http.StatusConflict,
	CodeSignupFailed:        http.StatusBadGateway,
	CodePhoneNumberInvalid:  http.StatusBadRequest,
	CodeAllocationExhausted: http.StatusInternalServerError,
}

// HTTPStatus maps a code onto its HTTP status. Unknown codes map to 500.
func HTTPStatus(code Code) int {
	if s, ok := httpStatuses[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is a coded domain error. Message is safe to show to callers; the
// wrapped cause is not.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and caller-safe message to an underlying error. A nil
// err returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// CodeInternal when none is present.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-safe message of the outermost coded error, or a
// generic message when err is not coded.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
