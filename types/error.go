package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the gateway.
type ErrorCode string

const (
	// ErrAuth means a credential exchange failed or the credential lacks a
	// required scope. Not retried automatically.
	ErrAuth ErrorCode = "AUTH"
	// ErrRateLimited means the upstream signaled throttling. Triggers
	// adaptive backoff; may be retried by the adapter a bounded number of times.
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	// ErrNetwork is a transport or timeout failure.
	ErrNetwork ErrorCode = "NETWORK"
	// ErrMalformedResponse means the upstream returned data the adapter
	// cannot parse into a verdict.
	ErrMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// ErrConfiguration is a missing or invalid setup. Fatal at construction,
	// never raised per-request.
	ErrConfiguration ErrorCode = "CONFIGURATION"
)

// Error is a structured error with code, message, and metadata. Adapters
// always fail with an *Error so the flow layer can branch on kind instead of
// string-matching messages.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Provider  string    `json:"provider,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
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

// NewAuthError creates an AUTH error.
func NewAuthError(message string) *Error {
	return &Error{Code: ErrAuth, Message: message}
}

// NewRateLimitError creates a retryable RATE_LIMITED error.
func NewRateLimitError(message string) *Error {
	return &Error{Code: ErrRateLimited, Message: message, Retryable: true}
}

// NewNetworkError creates a NETWORK error.
func NewNetworkError(message string) *Error {
	return &Error{Code: ErrNetwork, Message: message, Retryable: true}
}

// NewMalformedResponseError creates a MALFORMED_RESPONSE error.
func NewMalformedResponseError(message string) *Error {
	return &Error{Code: ErrMalformedResponse, Message: message}
}

// NewConfigurationError creates a CONFIGURATION error.
func NewConfigurationError(message string) *Error {
	return &Error{Code: ErrConfiguration, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsAuth reports whether err is an AUTH error.
func IsAuth(err error) bool { return GetErrorCode(err) == ErrAuth }

// IsRateLimited reports whether err is a RATE_LIMITED error.
func IsRateLimited(err error) bool { return GetErrorCode(err) == ErrRateLimited }

// IsConfiguration reports whether err is a CONFIGURATION error.
func IsConfiguration(err error) bool { return GetErrorCode(err) == ErrConfiguration }
