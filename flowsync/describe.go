package flowsync

import "fmt"

// describeChange renders a state change as the natural-language line pushed
// to the chat representation.
func describeChange(ev StateChangeEvent) string {
	origin := originLabel(ev.Source)

	switch ev.Type {
	case EventWorkflowModified:
		return fmt.Sprintf("Workflow updated %s.", origin)
	case EventBlockAdded:
		return fmt.Sprintf("Block %q added %s.", ev.BlockID, origin)
	case EventBlockRemoved:
		return fmt.Sprintf("Block %q removed %s.", ev.BlockID, origin)
	case EventBlockModified:
		if name, ok := ev.Data["name"].(string); ok && name != "" {
			return fmt.Sprintf("Block %q (%s) modified %s.", ev.BlockID, name, origin)
		}
		return fmt.Sprintf("Block %q modified %s.", ev.BlockID, origin)
	case EventConnectionAdded:
		return fmt.Sprintf("Connection %q added %s.", ev.ConnectionID, origin)
	case EventConnectionRemoved:
		return fmt.Sprintf("Connection %q removed %s.", ev.ConnectionID, origin)
	default:
		return fmt.Sprintf("Workflow changed (%s) %s.", ev.Type, origin)
	}
}

// describeExecution renders an execution lifecycle change for the chat feed.
func describeExecution(blockID string, state HighlightState) string {
	switch state {
	case HighlightActive:
		return fmt.Sprintf("Block %q is running.", blockID)
	case HighlightCompleted:
		return fmt.Sprintf("Block %q completed.", blockID)
	case HighlightError:
		return fmt.Sprintf("Block %q failed.", blockID)
	default:
		return fmt.Sprintf("Block %q changed execution state.", blockID)
	}
}

// describeResolution renders a conflict resolution for the chat feed.
func describeResolution(c SyncConflict, r Resolution, auto bool) string {
	mode := "manually"
	if auto {
		mode = "automatically"
	}
	outcome := string(r) + " wins"
	if r == ResolutionMerge {
		outcome = "merged"
	}
	return fmt.Sprintf("Conflict on %s resolved %s (%s).", c.TargetKey, mode, outcome)
}

func originLabel(s EventSource) string {
	switch s {
	case SourceVisual:
		return "in the visual editor"
	case SourceChat:
		return "via chat"
	case SourceExecution:
		return "by the execution engine"
	default:
		return "externally"
	}
}
