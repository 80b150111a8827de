// Package domainerrors provides coded domain errors shared across services,
// stores, and transports. Services create or wrap errors with a Code; the HTTP
// layer maps codes to status codes without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Codes are stable identifiers; messages are
// free text for operators and callers.
type Code string

const (
	// CodeValidation marks missing or malformed caller input.
	CodeValidation Code = "validation"
	// CodeNotFound marks a referenced record that does not exist or is not
	// visible to the caller.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a caller acting outside its role in a transition.
	CodeForbidden Code = "forbidden"
	// CodeConflict marks a request already resolved or a lost concurrent write.
	CodeConflict Code = "conflict"
	// CodeDataIntegrity marks a referenced record that vanished between request
	// creation and resolution.
	CodeDataIntegrity Code = "data_integrity"
	// CodeDownstream marks a storage or sink failure that aborted a transition.
	CodeDownstream Code = "downstream"
	// CodeTimeout marks a transaction aborted by context cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks an unexpected internal failure.
	CodeInternal Code = "internal"
)

// Error is a domain error with a stable code.
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

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while preserving the cause for
// errors.Is/As chains. Returns nil when err is nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error in the chain, or
// CodeInternal when err carries no code.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error to an HTTP status code. Unknown errors map
// to 500 so unclassified failures are never mistaken for client faults.
func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict, CodeDataIntegrity:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeDownstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
