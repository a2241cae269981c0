// Package llmerrors provides structured error classification for provider calls.
package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the failure categories a provider call can end in.
type ErrorType int8

const (
	// ErrorTypeTransport represents network and connection failures, including timeouts.
	ErrorTypeTransport ErrorType = iota
	// ErrorTypeAuth represents rejected credentials (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeResponse represents non-2xx statuses and bodies missing the expected content.
	ErrorTypeResponse
	// ErrorTypeNotConfigured represents a provider with no credential; it was never attempted.
	ErrorTypeNotConfigured
	// ErrorTypeUnknown represents default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTransport:
		return "transport"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeResponse:
		return "response"
	case ErrorTypeNotConfigured:
		return "not_configured"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified provider error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// NewError creates a new classified error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithStatus creates a new classified error with HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewErrorWithCause creates a new classified error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}

// NotConfigured reports a provider that has no credential to call with.
func NotConfigured(provider string) *Error {
	return NewError(ErrorTypeNotConfigured, fmt.Sprintf("API key not configured for %s", provider))
}

// ClassifyStatus maps an HTTP status code to an error type. 2xx has no type and returns false.
func ClassifyStatus(statusCode int) (ErrorType, bool) {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ErrorTypeUnknown, false
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth, true
	default:
		return ErrorTypeResponse, true
	}
}

// ClassifyTransport classifies an error that carried no HTTP status.
func ClassifyTransport(err error) *Error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewErrorWithCause(ErrorTypeTransport, err, "request timeout")
	case errors.Is(err, context.Canceled):
		return NewErrorWithCause(ErrorTypeTransport, err, "request canceled")
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "reset") {
		return NewErrorWithCause(ErrorTypeTransport, err, err.Error())
	}
	if LooksLikeAuth(errStr) {
		return NewErrorWithCause(ErrorTypeAuth, err, err.Error())
	}
	return NewErrorWithCause(ErrorTypeUnknown, err, err.Error())
}

// LooksLikeAuth reports whether a failure description reads as an authentication problem.
// Matching is substring based on the lowercased text.
func LooksLikeAuth(description string) bool {
	lower := strings.ToLower(description)
	return strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "api key") ||
		strings.Contains(lower, "auth")
}

// Description returns the text shown to users for err: the classified
// message when there is one, the full error text otherwise.
func Description(err error) string {
	if err == nil {
		return ""
	}
	var llmErr *Error
	if errors.As(err, &llmErr) && llmErr.Message != "" {
		return llmErr.Message
	}
	return err.Error()
}

// IsAuthFailure reports whether err is, or reads like, a rejected credential.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	switch TypeOf(err) {
	case ErrorTypeAuth, ErrorTypeNotConfigured:
		return true
	}
	return LooksLikeAuth(Description(err))
}
