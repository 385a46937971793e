package upstream

import (
	"fmt"
	"time"
)

// ForwardError represents a failure reaching the upstream provider.
type ForwardError struct {
	// Provider is the name of the provider the request was bound for
	Provider string

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *ForwardError) Error() string {
	return fmt.Sprintf("upstream %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ForwardError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents an upstream request timeout.
type TimeoutError struct {
	// Provider is the name of the provider where the timeout occurred
	Provider string

	// Timeout is the configured timeout duration
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream %q request timeout after %s", e.Provider, e.Timeout)
}

// ParseError represents a usage extraction failure on a provider response.
type ParseError struct {
	// Provider is the wire dialect being parsed
	Provider string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %q response: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
