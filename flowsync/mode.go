package flowsync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/c0deZ3R0/go-flow-sync/snapshot"
)

// ModeTransitionContext carries caller-supplied context for a transition.
type ModeTransitionContext struct {
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SessionSnapshot is the versioned capture of the full session state taken
// before a mode transition's adaptation runs.
type SessionSnapshot struct {
	Visual  VisualEditorState  `json:"visual"`
	Chat    ChatInterfaceState `json:"chat"`
	Hybrid  HybridModeState    `json:"hybrid"`
	TakenAt time.Time          `json:"taken_at"`
}

func (SessionSnapshot) Kind() string { return snapshot.KindSession }

type sessionCodec struct{}

func (sessionCodec) Kind() string { return snapshot.KindSession }

func (sessionCodec) Marshal(s snapshot.Snapshot) (json.RawMessage, error) {
	ss, ok := s.(SessionSnapshot)
	if !ok {
		return nil, fmt.Errorf("session codec cannot marshal %T", s)
	}
	return json.Marshal(ss)
}

func (sessionCodec) Unmarshal(data json.RawMessage) (snapshot.Snapshot, error) {
	var ss SessionSnapshot
	if err := json.Unmarshal(data, &ss); err != nil {
		return nil, fmt.Errorf("malformed session snapshot: %w", err)
	}
	return ss, nil
}

func init() {
	snapshot.Register(sessionCodec{})
}

// applyModeAdaptation runs the target mode's adaptation against the
// preserved snapshot. Adaptations are pure functions of (snapshot, target),
// which is what makes repeated transitions to the same mode idempotent.
func applyModeAdaptation(to ViewMode, snap SessionSnapshot, visual *VisualEditorState, chat *ChatInterfaceState, hybrid *HybridModeState) {
	switch to {
	case ModeChat:
		// The graph is hidden: collapse the visual selection into a textual
		// summary the conversation can refer to.
		chat.ContextSummary = summarizeSelection(snap.Visual)

	case ModeVisual:
		// The graph is back: re-render highlights from the latest known
		// execution state.
		visual.ExecutionHighlights = make(map[string]HighlightState, len(snap.Visual.ExecutionHighlights))
		for k, v := range snap.Visual.ExecutionHighlights {
			visual.ExecutionHighlights[k] = v
		}

	case ModeHybrid:
		chat.ContextSummary = summarizeSelection(snap.Visual)
		visual.ExecutionHighlights = make(map[string]HighlightState, len(snap.Visual.ExecutionHighlights))
		for k, v := range snap.Visual.ExecutionHighlights {
			visual.ExecutionHighlights[k] = v
		}
		if hybrid.SplitRatio <= 0 || hybrid.SplitRatio >= 1 {
			hybrid.SplitRatio = 0.5
		}
	}
}

// summarizeSelection renders the visual selection as chat context.
func summarizeSelection(visual VisualEditorState) string {
	if len(visual.SelectedBlocks) == 0 && len(visual.SelectedConnections) == 0 {
		return "No selection."
	}
	var parts []string
	if n := len(visual.SelectedBlocks); n > 0 {
		parts = append(parts, fmt.Sprintf("%d block(s) selected: %s",
			n, strings.Join(visual.SelectedBlocks, ", ")))
	}
	if n := len(visual.SelectedConnections); n > 0 {
		parts = append(parts, fmt.Sprintf("%d connection(s) selected", n))
	}
	return strings.Join(parts, "; ") + "."
}
