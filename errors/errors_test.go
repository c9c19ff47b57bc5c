package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSyncError_Error(t *testing.T) {
	cause := errors.New("disk full")
	err := NewWithComponent(OpJournal, "journal", cause)

	msg := err.Error()
	if !strings.Contains(msg, "journal operation failed in journal component") {
		t.Fatalf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, "disk full") {
		t.Fatalf("expected cause in message: %s", msg)
	}
}

func TestSyncError_ErrorWithCode(t *testing.T) {
	err := NewOverflowError(OpEnqueue, errors.New("capacity reached"))
	if !strings.Contains(err.Error(), "[QUEUE_OVERFLOW]") {
		t.Fatalf("expected code in message: %s", err.Error())
	}
}

func TestSyncError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(OpBatch, cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the cause")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var syncErr *SyncError
	if !errors.As(wrapped, &syncErr) {
		t.Fatalf("expected errors.As to find SyncError through wrapping")
	}
	if syncErr.Op != OpBatch {
		t.Fatalf("expected op %s, got %s", OpBatch, syncErr.Op)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain errors must not be retryable")
	}
	if !IsRetryable(NewStorageError(OpJournal, errors.New("locked"))) {
		t.Fatalf("storage errors are retryable")
	}
	if IsRetryable(NewValidationError(OpEnqueue, errors.New("missing block id"))) {
		t.Fatalf("validation errors are not retryable")
	}
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewConflictError(OpConflictResolve, errors.New("unresolvable")))
	if got := CodeOf(err); got != ErrCodeConflictFailure {
		t.Fatalf("expected %s, got %s", ErrCodeConflictFailure, got)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("expected empty code, got %s", got)
	}
}
