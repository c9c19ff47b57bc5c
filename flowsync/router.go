package flowsync

import (
	"context"
	"fmt"
	"log/slog"

	syncErrors "github.com/c0deZ3R0/go-flow-sync/errors"
)

// ChatNotifier is the consumed contract of the chat interface. The engine
// pushes generated change descriptions and execution updates through it.
// Implementations must not block; a nil notifier is a no-op.
type ChatNotifier interface {
	ChangeDescribed(ctx context.Context, workflowID, description string)
	ExecutionChanged(ctx context.Context, blockID string, state HighlightState)
}

// VisualNotifier is the consumed contract of the visual editor. The engine
// pushes highlight and selection updates through it.
type VisualNotifier interface {
	HighlightsUpdated(ctx context.Context, highlights map[string]HighlightState)
	SelectionSynced(ctx context.Context, selectedBlocks []string)
}

// notification is a collaborator callback captured while the session state
// lock is held and dispatched only after it is released, so a notifier may
// call back into the engine's accessors.
type notification func(ctx context.Context)

// eventRouter dispatches each event in a batch to the representation that
// did not originate it, keeping the visual and chat snapshots aligned.
type eventRouter struct {
	logger         *slog.Logger
	chatNotifier   ChatNotifier
	visualNotifier VisualNotifier
	highlighting   bool
}

// route processes a single event against the session state. It returns the
// pending change to feed conflict detection, whether the event actually
// mutated state, and the collaborator notifications to dispatch once the
// state lock is released; validation failures and unknown types are logged
// no-ops.
func (r *eventRouter) route(ev StateChangeEvent, visual *VisualEditorState, chat *ChatInterfaceState) (PendingChange, bool, []notification, error) {
	var notes []notification

	switch ev.Type.Category() {
	case CategoryWorkflow:
		notes = r.routeWorkflow(ev, visual, chat)
		return pendingChangeFor(ev), true, notes, nil

	case CategoryBlock:
		if ev.BlockID == "" {
			err := syncErrors.NewValidationError(syncErrors.OpRoute,
				fmt.Errorf("%s event requires a block id", ev.Type))
			return PendingChange{}, false, nil, err
		}
		notes = r.routeBlock(ev, visual, chat)
		return pendingChangeFor(ev), true, notes, nil

	case CategoryConnection:
		if ev.ConnectionID == "" {
			err := syncErrors.NewValidationError(syncErrors.OpRoute,
				fmt.Errorf("%s event requires a connection id", ev.Type))
			return PendingChange{}, false, nil, err
		}
		notes = r.routeConnection(ev, visual, chat)
		return pendingChangeFor(ev), true, notes, nil

	case CategoryExecution:
		notes = r.routeExecution(ev, visual, chat)
		return pendingChangeFor(ev), true, notes, nil

	case CategoryMode:
		// Mode transitions flow through HandleModeTransition; one arriving
		// as a queued event is only published, never routed.
		return PendingChange{}, false, nil, nil

	default:
		r.logger.Warn("Ignoring unrecognized event type",
			"event_type", ev.Type,
			"event_id", ev.ID,
			"source", ev.Source)
		return PendingChange{}, false, nil, nil
	}
}

func (r *eventRouter) routeWorkflow(ev StateChangeEvent, visual *VisualEditorState, chat *ChatInterfaceState) []notification {
	var notes []notification
	if ev.Source != SourceChat {
		notes = r.appendChatDescription(ev, chat, describeChange(ev), notes)
	}
	if ev.Source != SourceVisual && r.highlighting {
		notes = r.notifyHighlights(visual, notes)
	}
	return notes
}

func (r *eventRouter) routeBlock(ev StateChangeEvent, visual *VisualEditorState, chat *ChatInterfaceState) []notification {
	var notes []notification
	selected := visual.isSelected(ev.BlockID)

	if ev.Type == EventBlockRemoved {
		removeString(&visual.SelectedBlocks, ev.BlockID)
		delete(visual.ExecutionHighlights, ev.BlockID)
	}

	if ev.Source != SourceChat {
		notes = r.appendChatDescription(ev, chat, describeChange(ev), notes)
	}

	// A change landing on a selected block invalidates the editor's
	// selection-dependent UI; resynchronize it.
	if selected && r.visualNotifier != nil {
		selection := append([]string(nil), visual.SelectedBlocks...)
		notes = append(notes, func(ctx context.Context) {
			r.visualNotifier.SelectionSynced(ctx, selection)
		})
	}
	return notes
}

func (r *eventRouter) routeConnection(ev StateChangeEvent, visual *VisualEditorState, chat *ChatInterfaceState) []notification {
	var notes []notification
	if ev.Type == EventConnectionRemoved {
		removeString(&visual.SelectedConnections, ev.ConnectionID)
	}
	if ev.Source != SourceChat {
		notes = r.appendChatDescription(ev, chat, describeChange(ev), notes)
	}
	return notes
}

func (r *eventRouter) routeExecution(ev StateChangeEvent, visual *VisualEditorState, chat *ChatInterfaceState) []notification {
	var notes []notification
	highlight, ok := highlightFor(ev)

	if ev.BlockID == "" || !ok {
		// Workflow-level execution change: refresh the highlight view only.
		if r.highlighting {
			notes = r.notifyHighlights(visual, notes)
		}
		return notes
	}

	if r.highlighting {
		visual.ExecutionHighlights[ev.BlockID] = highlight
		notes = r.notifyHighlights(visual, notes)
	}

	chat.LastExecutionUpdate = describeExecution(ev.BlockID, highlight)
	if r.chatNotifier != nil {
		blockID := ev.BlockID
		notes = append(notes, func(ctx context.Context) {
			r.chatNotifier.ExecutionChanged(ctx, blockID, highlight)
		})
	}
	return notes
}

func (r *eventRouter) appendChatDescription(ev StateChangeEvent, chat *ChatInterfaceState, description string, notes []notification) []notification {
	chat.PendingDescriptions = append(chat.PendingDescriptions, description)
	chat.HistoryPointer++
	if r.chatNotifier != nil {
		workflowID := ev.WorkflowID
		notes = append(notes, func(ctx context.Context) {
			r.chatNotifier.ChangeDescribed(ctx, workflowID, description)
		})
	}
	return notes
}

func (r *eventRouter) notifyHighlights(visual *VisualEditorState, notes []notification) []notification {
	if r.visualNotifier == nil {
		return notes
	}
	highlights := make(map[string]HighlightState, len(visual.ExecutionHighlights))
	for k, v := range visual.ExecutionHighlights {
		highlights[k] = v
	}
	return append(notes, func(ctx context.Context) {
		r.visualNotifier.HighlightsUpdated(ctx, highlights)
	})
}

// highlightFor maps an execution event to the highlight it paints.
func highlightFor(ev StateChangeEvent) (HighlightState, bool) {
	switch ev.Type {
	case EventBlockExecutionStarted:
		return HighlightActive, true
	case EventBlockExecutionCompleted:
		return HighlightCompleted, true
	case EventBlockExecutionFailed:
		return HighlightError, true
	case EventExecutionStateChanged:
		if status, ok := ev.Data["status"].(string); ok {
			switch status {
			case "active", "running":
				return HighlightActive, true
			case "completed", "success":
				return HighlightCompleted, true
			case "error", "failed":
				return HighlightError, true
			}
		}
		return "", false
	default:
		return "", false
	}
}

func removeString(list *[]string, value string) {
	for i, v := range *list {
		if v == value {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}
