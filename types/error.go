package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the broker.
type ErrorCode string

// Request error codes
const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrPayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
	ErrUnavailable      ErrorCode = "SERVICE_UNAVAILABLE"
)

// Broker error codes
const (
	ErrDuplicateJoin      ErrorCode = "DUPLICATE_JOIN"
	ErrDuplicateTask      ErrorCode = "DUPLICATE_TASK"
	ErrNotJoined          ErrorCode = "NOT_JOINED"
	ErrUnknownParticipant ErrorCode = "UNKNOWN_PARTICIPANT"
	ErrMailboxEmpty       ErrorCode = "MAILBOX_EMPTY"
	ErrTimeout            ErrorCode = "TIMEOUT"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
