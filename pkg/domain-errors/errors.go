// Package domainerrors provides coded domain errors for the engine.
//
// Services return these so transport layers can translate them into stable,
// machine-readable error codes without string matching. Infrastructure facts
// (not found, conflict) use pkg/platform/sentinel instead; this package is for
// errors that carry meaning to callers.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain error. Codes are part of the public API:
// callers branch on them and UIs translate them, so they must stay stable.
type Code string

const (
	// Generic codes shared across handlers.
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"

	// Dispatch engine codes. Deterministic validation failures are cached per
	// request id; transient codes never are.
	CodeInvalidEffectiveDate Code = "invalid_effective_date"
	CodePayloadValidation    Code = "payload_validation_failed"
	CodeUnknownEntityKind    Code = "unknown_entity_kind"
	CodeSlotLockTimeout      Code = "slot_lock_timeout"
	CodeStaleCloseTarget     Code = "stale_close_target"
	CodeStorageUnavailable   Code = "storage_unavailable"
)

func (c Code) String() string { return string(c) }

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New builds a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause while preserving the
// error chain for errors.Is/As.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, wrapped: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in the domain.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Transient reports whether the code describes a retryable infrastructure
// condition. Transient outcomes are never cached under a request id.
func Transient(code Code) bool {
	switch code {
	case CodeSlotLockTimeout, CodeStaleCloseTarget, CodeStorageUnavailable:
		return true
	default:
		return false
	}
}

// ToHTTPStatus maps a domain code to its HTTP status. Unknown codes map to 500
// so a missing entry fails safe rather than leaking a 200.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeInvalidEffectiveDate, CodePayloadValidation, CodeUnknownEntityKind:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeStaleCloseTarget:
		return http.StatusConflict
	case CodeSlotLockTimeout, CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
