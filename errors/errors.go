// Package errors provides custom error types for the flow-sync engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred
type ErrorCode string

const (
	ErrCodeQueueOverflow     ErrorCode = "QUEUE_OVERFLOW"
	ErrCodeStorageFailure    ErrorCode = "STORAGE_FAILURE"
	ErrCodeConflictFailure   ErrorCode = "CONFLICT_FAILURE"
	ErrCodeValidationFailure ErrorCode = "VALIDATION_FAILURE"
)

// Operation represents the type of sync operation
type Operation string

const (
	OpEnqueue         Operation = "enqueue"
	OpBatch           Operation = "batch"
	OpRoute           Operation = "route"
	OpConflictDetect  Operation = "conflict_detect"
	OpConflictResolve Operation = "conflict_resolve"
	OpTransition      Operation = "transition"
	OpJournal         Operation = "journal"
	OpClose           Operation = "close"
)

// SyncError represents an error that occurred during synchronization
type SyncError struct {
	// Operation during which the error occurred
	Op Operation

	// Component that generated the error (e.g., "queue", "router")
	Component string

	// Underlying error
	Err error

	// Whether the operation can be retried
	Retryable bool

	// Error code for the error type
	Code ErrorCode

	// Metadata for additional context
	Metadata map[string]interface{}
}

func (e *SyncError) Error() string {
	var msg string
	if e.Component != "" {
		msg = fmt.Sprintf("%s operation failed in %s component", e.Op, e.Component)
	} else {
		msg = fmt.Sprintf("%s operation failed", e.Op)
	}

	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}

	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewOverflowError creates a SyncError for queue overflow eviction
func NewOverflowError(op Operation, cause error) *SyncError {
	return &SyncError{
		Code:      ErrCodeQueueOverflow,
		Op:        op,
		Component: "queue",
		Err:       cause,
		Retryable: false,
	}
}

// NewStorageError creates a new storage-related SyncError
func NewStorageError(op Operation, cause error) *SyncError {
	return &SyncError{
		Code:      ErrCodeStorageFailure,
		Op:        op,
		Component: "journal",
		Err:       cause,
		Retryable: true,
	}
}

// NewConflictError creates a new conflict-related SyncError
func NewConflictError(op Operation, cause error) *SyncError {
	return &SyncError{
		Code:      ErrCodeConflictFailure,
		Op:        op,
		Component: "sync",
		Err:       cause,
		Retryable: false,
	}
}

// NewValidationError creates a new validation-related SyncError
func NewValidationError(op Operation, cause error) *SyncError {
	return &SyncError{
		Code:      ErrCodeValidationFailure,
		Op:        op,
		Err:       cause,
		Retryable: false,
	}
}

// New creates a new SyncError
func New(op Operation, err error) *SyncError {
	return &SyncError{
		Op:  op,
		Err: err,
	}
}

// NewWithComponent creates a new SyncError with component information
func NewWithComponent(op Operation, component string, err error) *SyncError {
	return &SyncError{
		Op:        op,
		Component: component,
		Err:       err,
	}
}

// NewRetryable creates a new retryable SyncError
func NewRetryable(op Operation, err error) *SyncError {
	return &SyncError{
		Op:        op,
		Err:       err,
		Retryable: true,
	}
}

// IsRetryable checks if an error is a retryable SyncError
func IsRetryable(err error) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode from an error chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Code
	}
	return ""
}
