// Package dberrors provides structured error handling for the toolbox with
// error categorization and key-value context. Every failure that crosses a
// package boundary is a *dberrors.Error so that callers can branch on the
// error type instead of string-matching messages.
package dberrors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes an error for handling strategies and for mapping to
// the uniform call-result envelope returned to MCP clients.
type ErrorType string

const (
	// Configuration errors, surfaced at load time. They abort the build
	// phase entirely; no partial registry is ever exposed.

	// ErrorTypeMissingCredential indicates a ${NAME} placeholder with no
	// matching entry in the credential mapping.
	ErrorTypeMissingCredential ErrorType = "missing_credential"
	// ErrorTypeUnknownType indicates a backend type tag with no registered
	// capability.
	ErrorTypeUnknownType ErrorType = "unknown_type"
	// ErrorTypeMissingRequiredParam indicates a declaration missing or
	// leaving empty a parameter its type requires.
	ErrorTypeMissingRequiredParam ErrorType = "missing_required_param"
	// ErrorTypeDuplicateID indicates two declarations sharing an id.
	ErrorTypeDuplicateID ErrorType = "duplicate_id"
	// ErrorTypeMalformedConfig indicates the configuration file could not
	// be parsed at the structural level. This is the one fatal condition.
	ErrorTypeMalformedConfig ErrorType = "malformed_config"

	// Per-call errors, returned in the result envelope.

	// ErrorTypeUnknownInstance indicates a db_id not present in the registry.
	ErrorTypeUnknownInstance ErrorType = "unknown_instance"
	// ErrorTypeInstanceUnavailable indicates an instance that is configured
	// but whose backend could not be reached at startup or was shut down.
	ErrorTypeInstanceUnavailable ErrorType = "instance_unavailable"
	// ErrorTypeUnsupportedOperation indicates an operation not in the
	// target instance's type capability set.
	ErrorTypeUnsupportedOperation ErrorType = "unsupported_operation"
	// ErrorTypeInvalidArgument indicates a missing required argument or a
	// structured argument that failed to parse.
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	// ErrorTypePoolExhausted indicates the bounded acquire wait timed out.
	ErrorTypePoolExhausted ErrorType = "pool_exhausted"
	// ErrorTypeBackend wraps any failure raised by the backend client
	// during execution.
	ErrorTypeBackend ErrorType = "backend"
	// ErrorTypeTimeout indicates the call exceeded its execution deadline.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConnection indicates a failure establishing or validating a
	// backend connection.
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeInternal represents internal faults that should not occur.
	ErrorTypeInternal ErrorType = "internal"
)

// Error is a categorized error with optional cause and key-value details.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value detail to the error. Chainable.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns the detail stored under key, or nil.
func (e *Error) Detail(key string) interface{} {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// New creates a new categorized error.
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Newf creates a new categorized error with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a type and message. A nil err yields nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Message: message, Cause: err}
}

// GetType returns the ErrorType of err, unwrapping as needed.
// Non-categorized errors report ErrorTypeInternal.
func GetType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err carries the given ErrorType anywhere in its chain.
func IsType(err error, errType ErrorType) bool {
	return GetType(err) == errType
}

// IsRetryable reports whether the error represents transient pressure that a
// caller may retry with backoff. The toolbox itself never auto-retries.
func IsRetryable(err error) bool {
	switch GetType(err) {
	case ErrorTypePoolExhausted, ErrorTypeTimeout, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// AsError converts any error into a *Error, wrapping uncategorized errors as
// ErrorTypeInternal so the result envelope always has a type to report.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Type: ErrorTypeInternal, Message: err.Error(), Cause: err}
}
