// Package domainerrors provides coded, caller-facing errors for the workflow
// core. Services translate store sentinels into these; transport maps codes to
// HTTP statuses in exactly one place.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and for HTTP mapping.
type Code string

const (
	// CodeBadRequest covers missing or malformed input: required field
	// absent, enum value outside the allowed set, numeric field out of range.
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized covers missing or invalid authentication.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden covers an authenticated actor lacking the required role
	// or acting on a record that belongs to someone else.
	CodeForbidden Code = "forbidden"

	// CodeNotFound covers references to lands, disputes, transfers or users
	// that do not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict covers uniqueness collisions, e.g. a duplicate parcel id.
	CodeConflict Code = "conflict"

	// CodeInvalidState covers operations attempted from a status that
	// forbids them, e.g. listing a disputed land for sale.
	CodeInvalidState Code = "invalid_state"

	// CodeInvariantViolation covers aggregate invariants broken inside the
	// domain model. Services usually translate these before they escape.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeTimeout covers transactions aborted by context cancellation.
	CodeTimeout Code = "timeout"

	// CodeInternal covers unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a caller-facing message, and an optional cause.
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

// New builds a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message from err. Non-domain errors
// yield a generic message so internals never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
