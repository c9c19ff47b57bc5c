package flowsync

import (
	"context"
	"time"
)

// ResolutionRecord is the audit entry written for every applied conflict
// resolution, automatic or manual.
type ResolutionRecord struct {
	ID           string
	ConflictID   string
	ConflictType ConflictType
	TargetKey    string
	Resolution   Resolution
	Auto         bool
	ResolvedAt   time.Time
	Details      map[string]any
}

// TransitionRecord is the audit entry written for every mode transition.
type TransitionRecord struct {
	ID       string
	FromMode ViewMode
	ToMode   ViewMode
	At       time.Time
	Snapshot []byte
}

// Journal persists resolution and transition history for audit. The engine
// never fails an operation on a journal error; failures are logged and the
// batch loop keeps moving.
type Journal interface {
	RecordResolution(ctx context.Context, rec ResolutionRecord) error
	RecordTransition(ctx context.Context, rec TransitionRecord) error
	Close() error
}
