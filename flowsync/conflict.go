package flowsync

import (
	"time"

	"github.com/google/uuid"
)

// ConflictType classifies a detected conflict by its dominant change category.
type ConflictType string

const (
	ConflictConcurrentBlockModification ConflictType = "concurrent_block_modification"
	ConflictConcurrentConnectionChange  ConflictType = "concurrent_connection_change"
	ConflictExecutionState              ConflictType = "execution_state_conflict"
	ConflictStructural                  ConflictType = "structural_conflict"
)

// workflowTargetKey is the grouping key for workflow-level changes.
const workflowTargetKey = "workflow"

// PendingChange links a routed event to the target entity it mutates.
// Pending changes exist only for the duration of one batch cycle and are
// discarded once conflict detection has run.
type PendingChange struct {
	Event     StateChangeEvent
	TargetKey string
	Category  EventCategory
}

// pendingChangeFor derives the conflict-detection record for a routed event.
func pendingChangeFor(ev StateChangeEvent) PendingChange {
	category := ev.Type.Category()
	key := workflowTargetKey
	switch category {
	case CategoryBlock:
		key = "block:" + ev.BlockID
	case CategoryConnection:
		key = "connection:" + ev.ConnectionID
	case CategoryExecution:
		if ev.BlockID != "" {
			key = "block:" + ev.BlockID
		}
	}
	return PendingChange{Event: ev, TargetKey: key, Category: category}
}

// SyncConflict is a detected case of two or more independent changes
// targeting the same entity within one batch. It lives in the conflict
// store until resolved, automatically or manually.
type SyncConflict struct {
	ID        string
	Type      ConflictType
	TargetKey string
	Changes   []PendingChange
	CreatedAt time.Time
}

// detectConflicts groups a batch's pending changes by target key and flags
// every target touched by changes from more than one source. Detection runs
// once per fully-routed batch, so conflicts reflect batch-local concurrency
// rather than global history. Exactly one conflict is produced per
// contested target.
func detectConflicts(changes []PendingChange, now time.Time) []SyncConflict {
	if len(changes) < 2 {
		return nil
	}

	groups := make(map[string][]PendingChange)
	order := make([]string, 0, len(changes))
	for _, pc := range changes {
		if _, seen := groups[pc.TargetKey]; !seen {
			order = append(order, pc.TargetKey)
		}
		groups[pc.TargetKey] = append(groups[pc.TargetKey], pc)
	}

	var conflicts []SyncConflict
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 || !independentSources(group) {
			continue
		}
		conflicts = append(conflicts, SyncConflict{
			ID:        uuid.NewString(),
			Type:      dominantConflictType(key, group),
			TargetKey: key,
			Changes:   group,
			CreatedAt: now,
		})
	}
	return conflicts
}

// independentSources reports whether a group of changes came from at least
// two distinct origins. Repeated edits from a single representation within
// one batch are just a fast editor, not a conflict.
func independentSources(group []PendingChange) bool {
	first := group[0].Event.Source
	for _, pc := range group[1:] {
		if pc.Event.Source != first {
			return true
		}
	}
	return false
}

// dominantConflictType picks the conflict type from the majority change
// category, breaking ties in block > connection > execution order.
// Workflow-level contention is structural.
func dominantConflictType(targetKey string, group []PendingChange) ConflictType {
	if targetKey == workflowTargetKey {
		return ConflictStructural
	}

	counts := make(map[EventCategory]int, 3)
	for _, pc := range group {
		counts[pc.Category]++
	}

	best := CategoryUnknown
	for _, category := range []EventCategory{CategoryBlock, CategoryConnection, CategoryExecution} {
		if counts[category] > counts[best] {
			best = category
		}
	}

	switch best {
	case CategoryBlock:
		return ConflictConcurrentBlockModification
	case CategoryConnection:
		return ConflictConcurrentConnectionChange
	case CategoryExecution:
		return ConflictExecutionState
	default:
		return ConflictStructural
	}
}
