// internal/common/errors/errors.go

// Package errors provides standardized error handling for the validation
// pipeline.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Directory / resolution errors
	ErrCodeDirectoryNotFound     ErrorCode = "DIRECTORY_NOT_FOUND"
	ErrCodeDirectoryUnauthorized ErrorCode = "DIRECTORY_UNAUTHORIZED"
	ErrCodeDirectoryUpstream     ErrorCode = "DIRECTORY_UPSTREAM_ERROR"

	// Job-level errors
	ErrCodeGenerationFailure ErrorCode = "GENERATION_FAILURE"

	// Infrastructure errors
	ErrCodeStoreError ErrorCode = "STORE_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewDirectoryNotFoundError creates a non-retryable lookup error.
func NewDirectoryNotFoundError(lookupID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryNotFound,
		Message:   "No directory record matched the lookup id",
		Details:   fmt.Sprintf("lookupId: %s", lookupID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDirectoryUnauthorizedError marks an auth failure that survived the
// single refresh-and-retry. Fatal for that call.
func NewDirectoryUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryUnauthorized,
		Message:   "Directory rejected credentials after token refresh",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDirectoryUpstreamError creates a non-retried upstream error carrying the
// HTTP status for the caller's decision.
func NewDirectoryUpstreamError(status int, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryUpstream,
		Message:   "Directory returned an unexpected response",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationFailureError marks a failed renderer call. The raw upstream
// body lives in Details, where only internal log sinks read it; Error()
// reports the status alone.
func NewGenerationFailureError(status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailure,
		Message:   fmt.Sprintf("Renderer returned status %d", status),
		Details:   body,
		Retryable: true,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreError creates a retryable persistent-store error.
func NewStoreError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreError,
		Message:   "Persistent store operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// Normalize ensures any error is represented as a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// UpstreamStatus extracts the HTTP status recorded on a directory upstream
// error, or 0 when absent.
func UpstreamStatus(err error) int {
	stdErr, ok := err.(*StandardError)
	if !ok || stdErr.Metadata == nil {
		return 0
	}
	if s, ok := stdErr.Metadata["status"].(int); ok {
		return s
	}
	return 0
}
