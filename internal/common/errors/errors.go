// Package errors provides the standardized error taxonomy for the verification
// pipeline. Business rejections, transport failures and programming errors carry
// distinct codes so the pipeline can never conflate them.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Shape errors, resolved locally with no external call.
	ErrCodeMalformedRequest ErrorCode = "MALFORMED_REQUEST"

	// Transport / availability errors. Always resolve to manual review.
	ErrCodeProviderUnreachable ErrorCode = "PROVIDER_UNREACHABLE"
	ErrCodeProviderTimeout     ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeProviderAuth        ErrorCode = "PROVIDER_AUTH_FAILED"
	ErrCodeProviderBadResponse ErrorCode = "PROVIDER_BAD_RESPONSE"

	// Caller cancellation.
	ErrCodeCancelled ErrorCode = "CANCELLED"

	// Programming errors caught at the pipeline boundary.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured verification error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewMalformedRequestError creates a non-retryable shape error.
func NewMalformedRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedRequest,
		Message:   "Verification request is malformed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderUnreachableError creates a retryable availability error.
func NewProviderUnreachableError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderUnreachable,
		Message:   fmt.Sprintf("Provider '%s' is unreachable", provider),
		Provider:  provider,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderTimeoutError creates a retryable timeout error.
func NewProviderTimeoutError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   fmt.Sprintf("Provider '%s' timed out", provider),
		Details:   err.Error(),
		Provider:  provider,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderAuthError creates a non-retryable authentication error. The
// message is deliberately generic: credentials never appear in results or logs.
func NewProviderAuthError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderAuth,
		Message:   fmt.Sprintf("Provider '%s' rejected the request", provider),
		Provider:  provider,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderBadResponseError creates a retryable protocol error.
func NewProviderBadResponseError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderBadResponse,
		Message:   fmt.Sprintf("Provider '%s' returned an unusable response", provider),
		Details:   err.Error(),
		Provider:  provider,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCancelledError marks a run aborted by the caller's deadline.
func NewCancelledError(stage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCancelled,
		Message:   "Verification cancelled by caller",
		Details:   fmt.Sprintf("stage: %s", stage),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected programming error.
func NewInternalError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected internal error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// AsStandard extracts a *StandardError from an error chain, or nil.
func AsStandard(err error) *StandardError {
	var se *StandardError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// IsTransport reports whether err is a transport or availability failure that
// must resolve to manual review, never to approval or rejection.
func IsTransport(err error) bool {
	se := AsStandard(err)
	if se == nil {
		return false
	}
	switch se.Code {
	case ErrCodeProviderUnreachable, ErrCodeProviderTimeout, ErrCodeProviderBadResponse:
		return true
	}
	return false
}

// IsAuth reports whether err is a provider authentication failure.
func IsAuth(err error) bool {
	se := AsStandard(err)
	return se != nil && se.Code == ErrCodeProviderAuth
}

// IsCancelled reports whether err carries caller cancellation.
func IsCancelled(err error) bool {
	if se := AsStandard(err); se != nil && se.Code == ErrCodeCancelled {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
