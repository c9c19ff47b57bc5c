package flowsync

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventSource identifies which representation originated a state change.
type EventSource string

const (
	SourceVisual    EventSource = "visual"
	SourceChat      EventSource = "chat"
	SourceExecution EventSource = "execution"
)

// EventType is the logical type of a state change.
type EventType string

const (
	EventWorkflowModified EventType = "workflow_modified"

	EventBlockAdded    EventType = "block_added"
	EventBlockRemoved  EventType = "block_removed"
	EventBlockModified EventType = "block_modified"

	EventConnectionAdded   EventType = "connection_added"
	EventConnectionRemoved EventType = "connection_removed"

	EventExecutionStateChanged   EventType = "execution_state_changed"
	EventBlockExecutionStarted   EventType = "block_execution_started"
	EventBlockExecutionCompleted EventType = "block_execution_completed"
	EventBlockExecutionFailed    EventType = "block_execution_failed"

	EventModeTransition EventType = "mode_transition"
)

// EventCategory groups event types for routing and conflict detection.
type EventCategory string

const (
	CategoryWorkflow   EventCategory = "workflow"
	CategoryBlock      EventCategory = "block"
	CategoryConnection EventCategory = "connection"
	CategoryExecution  EventCategory = "execution"
	CategoryMode       EventCategory = "mode"
	CategoryUnknown    EventCategory = "unknown"
)

// Category maps an event type to its routing category. Unrecognized types
// map to CategoryUnknown and are treated as forward-compatible no-ops.
func (t EventType) Category() EventCategory {
	switch t {
	case EventWorkflowModified:
		return CategoryWorkflow
	case EventBlockAdded, EventBlockRemoved, EventBlockModified:
		return CategoryBlock
	case EventConnectionAdded, EventConnectionRemoved:
		return CategoryConnection
	case EventExecutionStateChanged, EventBlockExecutionStarted,
		EventBlockExecutionCompleted, EventBlockExecutionFailed:
		return CategoryExecution
	case EventModeTransition:
		return CategoryMode
	default:
		return CategoryUnknown
	}
}

// StateChangeEvent is the unit of work flowing through the queue.
// Immutable once enqueued.
type StateChangeEvent struct {
	// ID is a sortable ULID assigned at enqueue when the producer left it empty.
	ID string

	Type   EventType
	Source EventSource

	WorkflowID   string
	BlockID      string
	ConnectionID string

	Timestamp time.Time
	Data      map[string]any
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newEventID returns a monotonic ULID so event ids sort in enqueue order.
func newEventID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
