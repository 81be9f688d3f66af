// Package errors provides structured error types for panelkit.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP surface
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes map to the failure taxonomy of the dashboard core:
//   - CONFIGURATION: invalid service registrations, fatal at registration time
//   - CIRCULAR_DEPENDENCY / NOT_REGISTERED: fatal at resolution time
//   - TRANSPORT: network failures, recovered locally via retry + defaults
//   - RENDER_VALIDATION: empty series or failed post-render checks,
//     recovered via degraded-mode substitution
//   - RECOVERY_EXHAUSTED: terminal per-container recovery failure
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "invalid service name: %s", name)
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // Handle registration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeTransport, origErr, "fetch %s failed", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the failure taxonomy.
const (
	// Registration-time errors (fatal, never silently accepted)
	ErrCodeConfiguration Code = "CONFIGURATION"

	// Resolution-time errors (fatal)
	ErrCodeCircularDependency Code = "CIRCULAR_DEPENDENCY"
	ErrCodeNotRegistered      Code = "NOT_REGISTERED"

	// Data acquisition errors (recovered via retry + default payloads)
	ErrCodeTransport Code = "TRANSPORT"
	ErrCodeTimeout   Code = "TIMEOUT"

	// Rendering errors (recovered via degraded-mode substitution)
	ErrCodeRenderValidation Code = "RENDER_VALIDATION"
	ErrCodeNoContainer      Code = "NO_CONTAINER"

	// Health monitoring errors
	ErrCodeRecoveryExhausted Code = "RECOVERY_EXHAUSTED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
