package flowsync

import "time"

// ViewMode is the active user-facing representation.
type ViewMode string

const (
	ModeVisual ViewMode = "visual"
	ModeChat   ViewMode = "chat"
	ModeHybrid ViewMode = "hybrid"
)

func (m ViewMode) valid() bool {
	switch m {
	case ModeVisual, ModeChat, ModeHybrid:
		return true
	default:
		return false
	}
}

// HighlightState is the execution highlight shown on a block.
type HighlightState string

const (
	HighlightActive    HighlightState = "active"
	HighlightCompleted HighlightState = "completed"
	HighlightError     HighlightState = "error"
)

// Viewport describes the visual editor's camera.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// VisualEditorState is the engine's session-scoped snapshot of the
// node-graph view. The engine is the sole writer; collaborators read
// copies through GetVisualState and mutate only by emitting events.
type VisualEditorState struct {
	SelectedBlocks      []string                  `json:"selected_blocks"`
	SelectedConnections []string                  `json:"selected_connections"`
	Viewport            Viewport                  `json:"viewport"`
	ExecutionHighlights map[string]HighlightState `json:"execution_highlights"`
}

func newVisualEditorState() VisualEditorState {
	return VisualEditorState{
		Viewport:            Viewport{Zoom: 1.0},
		ExecutionHighlights: make(map[string]HighlightState),
	}
}

func (s VisualEditorState) clone() VisualEditorState {
	out := s
	out.SelectedBlocks = append([]string(nil), s.SelectedBlocks...)
	out.SelectedConnections = append([]string(nil), s.SelectedConnections...)
	out.ExecutionHighlights = make(map[string]HighlightState, len(s.ExecutionHighlights))
	for k, v := range s.ExecutionHighlights {
		out.ExecutionHighlights[k] = v
	}
	return out
}

func (s VisualEditorState) isSelected(blockID string) bool {
	for _, id := range s.SelectedBlocks {
		if id == blockID {
			return true
		}
	}
	return false
}

// ChatInterfaceState is the engine's session-scoped snapshot of the
// conversational view.
type ChatInterfaceState struct {
	// HistoryPointer advances once per change description appended.
	HistoryPointer int `json:"history_pointer"`

	// PendingDescriptions is the natural-language change feed not yet
	// rendered by the chat UI.
	PendingDescriptions []string `json:"pending_descriptions"`

	// ContextSummary is the textual summary produced when entering chat mode.
	ContextSummary string `json:"context_summary"`

	// LastExecutionUpdate is the most recent execution notice pushed to chat.
	LastExecutionUpdate string `json:"last_execution_update"`
}

func newChatInterfaceState() ChatInterfaceState {
	return ChatInterfaceState{}
}

func (s ChatInterfaceState) clone() ChatInterfaceState {
	out := s
	out.PendingDescriptions = append([]string(nil), s.PendingDescriptions...)
	return out
}

// HybridModeState tracks the active view mode and split layout.
type HybridModeState struct {
	CurrentMode    ViewMode  `json:"current_mode"`
	SplitRatio     float64   `json:"split_ratio"`
	Layout         string    `json:"layout"`
	LastTransition time.Time `json:"last_transition"`
}

func newHybridModeState() HybridModeState {
	return HybridModeState{
		CurrentMode: ModeVisual,
		SplitRatio:  0.5,
		Layout:      "horizontal",
	}
}
