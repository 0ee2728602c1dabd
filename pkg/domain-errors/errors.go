// Package domainerrors defines the coded error type used across service
// boundaries. Codes classify failures so handlers and coordinators can react
// without string matching: guard violations surface verbatim to users,
// configuration errors log loudly, sync/mapping failures trigger recovery
// paths instead of crashing the session.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeGuardViolation marks a transition blocked by a business rule. The
	// message is the human-readable reason and is safe to show to users.
	CodeGuardViolation Code = "guard_violation"

	// CodeConfiguration marks an unknown stage or corrupt stage order. This is
	// a deployment/data bug, never user error; it aborts the operation only.
	CodeConfiguration Code = "configuration_error"

	// CodeSyncFailure marks an unreachable backend. Recoverable; the caller
	// falls back to cached state and retries on reconnect.
	CodeSyncFailure Code = "sync_failure"

	// CodeMappingFailure marks a push delta that could not be decoded into a
	// well-formed candidate. Recoverable via full refresh.
	CodeMappingFailure Code = "mapping_failure"

	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal_error"
)

// Error is a coded domain error. Message is safe to surface for recoverable
// codes; internal details stay in the wrapped cause.
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

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause yields
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// the chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the user-safe message of the outermost coded error, or an
// empty string when the chain carries none.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
