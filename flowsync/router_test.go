package flowsync

import (
	"context"
	"testing"
)

// mockChatNotifier records notifications pushed to the chat side.
type mockChatNotifier struct {
	descriptions []string
	execUpdates  []string
}

func (m *mockChatNotifier) ChangeDescribed(_ context.Context, _ string, description string) {
	m.descriptions = append(m.descriptions, description)
}

func (m *mockChatNotifier) ExecutionChanged(_ context.Context, blockID string, _ HighlightState) {
	m.execUpdates = append(m.execUpdates, blockID)
}

// mockVisualNotifier records notifications pushed to the visual side.
type mockVisualNotifier struct {
	highlightCalls int
	lastHighlights map[string]HighlightState
	selectionCalls int
	lastSelection  []string
}

func (m *mockVisualNotifier) HighlightsUpdated(_ context.Context, highlights map[string]HighlightState) {
	m.highlightCalls++
	m.lastHighlights = highlights
}

func (m *mockVisualNotifier) SelectionSynced(_ context.Context, selected []string) {
	m.selectionCalls++
	m.lastSelection = selected
}

func newTestRouter(chat *mockChatNotifier, visual *mockVisualNotifier) *eventRouter {
	r := &eventRouter{
		logger:       testLogger(),
		highlighting: true,
	}
	if chat != nil {
		r.chatNotifier = chat
	}
	if visual != nil {
		r.visualNotifier = visual
	}
	return r
}

// routeAndNotify routes one event and dispatches the collected
// notifications, mirroring the engine's lock-then-dispatch sequence.
func routeAndNotify(t *testing.T, r *eventRouter, ev StateChangeEvent, visual *VisualEditorState, chat *ChatInterfaceState) (PendingChange, bool, error) {
	t.Helper()
	pc, routed, notes, err := r.route(ev, visual, chat)
	for _, notify := range notes {
		notify(context.Background())
	}
	return pc, routed, err
}

func TestRouteVisualChangeReachesChat(t *testing.T) {
	chatN := &mockChatNotifier{}
	r := newTestRouter(chatN, nil)
	visual := newVisualEditorState()
	chat := newChatInterfaceState()

	ev := blockEvent(EventBlockAdded, SourceVisual, "b1")
	_, routed, err := routeAndNotify(t, r, ev, &visual, &chat)
	if err != nil || !routed {
		t.Fatalf("expected routed event, got routed=%v err=%v", routed, err)
	}

	if len(chat.PendingDescriptions) != 1 {
		t.Fatalf("expected 1 chat description, got %d", len(chat.PendingDescriptions))
	}
	if chat.HistoryPointer != 1 {
		t.Errorf("history pointer should advance, got %d", chat.HistoryPointer)
	}
	if len(chatN.descriptions) != 1 {
		t.Errorf("chat notifier should receive the description")
	}
}

func TestRouteChatChangeDoesNotEchoToChat(t *testing.T) {
	chatN := &mockChatNotifier{}
	r := newTestRouter(chatN, nil)
	visual := newVisualEditorState()
	chat := newChatInterfaceState()

	ev := blockEvent(EventBlockModified, SourceChat, "b1")
	if _, routed, err := routeAndNotify(t, r, ev, &visual, &chat); err != nil || !routed {
		t.Fatalf("expected routed event, got routed=%v err=%v", routed, err)
	}

	if len(chat.PendingDescriptions) != 0 {
		t.Errorf("a chat-originated change must not be described back to chat")
	}
	if len(chatN.descriptions) != 0 {
		t.Errorf("chat notifier must not echo chat-originated changes")
	}
}

func TestRouteBlockRemovedClearsSelectionAndHighlight(t *testing.T) {
	visualN := &mockVisualNotifier{}
	r := newTestRouter(nil, visualN)
	visual := newVisualEditorState()
	visual.SelectedBlocks = []string{"b1", "b2"}
	visual.ExecutionHighlights["b1"] = HighlightActive
	chat := newChatInterfaceState()

	ev := blockEvent(EventBlockRemoved, SourceChat, "b1")
	if _, routed, err := routeAndNotify(t, r, ev, &visual, &chat); err != nil || !routed {
		t.Fatalf("expected routed event, got routed=%v err=%v", routed, err)
	}

	if visual.isSelected("b1") {
		t.Error("removed block must leave the selection")
	}
	if _, ok := visual.ExecutionHighlights["b1"]; ok {
		t.Error("removed block must lose its highlight")
	}
	if visualN.selectionCalls != 1 {
		t.Errorf("selection should resync once, got %d calls", visualN.selectionCalls)
	}
	if len(visualN.lastSelection) != 1 || visualN.lastSelection[0] != "b2" {
		t.Errorf("unexpected synced selection %v", visualN.lastSelection)
	}
}

func TestRouteBlockEventRequiresBlockID(t *testing.T) {
	r := newTestRouter(nil, nil)
	visual := newVisualEditorState()
	chat := newChatInterfaceState()

	ev := StateChangeEvent{Type: EventBlockModified, Source: SourceVisual}
	_, routed, err := routeAndNotify(t, r, ev, &visual, &chat)
	if routed {
		t.Error("event without block id must not route")
	}
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRouteExecutionPaintsHighlight(t *testing.T) {
	chatN := &mockChatNotifier{}
	visualN := &mockVisualNotifier{}
	r := newTestRouter(chatN, visualN)
	visual := newVisualEditorState()
	chat := newChatInterfaceState()

	ev := blockEvent(EventBlockExecutionFailed, SourceExecution, "b1")
	if _, routed, err := routeAndNotify(t, r, ev, &visual, &chat); err != nil || !routed {
		t.Fatalf("expected routed event, got routed=%v err=%v", routed, err)
	}

	if visual.ExecutionHighlights["b1"] != HighlightError {
		t.Errorf("expected error highlight, got %s", visual.ExecutionHighlights["b1"])
	}
	if visualN.highlightCalls != 1 {
		t.Errorf("expected 1 highlight notification, got %d", visualN.highlightCalls)
	}
	if chat.LastExecutionUpdate == "" {
		t.Error("chat should carry the execution update")
	}
	if len(chatN.execUpdates) != 1 || chatN.execUpdates[0] != "b1" {
		t.Errorf("unexpected chat execution updates %v", chatN.execUpdates)
	}
}

func TestRouteExecutionStatusFromData(t *testing.T) {
	r := newTestRouter(nil, nil)
	visual := newVisualEditorState()
	chat := newChatInterfaceState()

	ev := StateChangeEvent{
		Type:    EventExecutionStateChanged,
		Source:  SourceExecution,
		BlockID: "b1",
		Data:    map[string]any{"status": "completed"},
	}
	if _, routed, err := routeAndNotify(t, r, ev, &visual, &chat); err != nil || !routed {
		t.Fatalf("expected routed event, got routed=%v err=%v", routed, err)
	}
	if visual.ExecutionHighlights["b1"] != HighlightCompleted {
		t.Errorf("expected completed highlight, got %s", visual.ExecutionHighlights["b1"])
	}
}

func TestRouteUnknownTypeIsNoOp(t *testing.T) {
	r := newTestRouter(nil, nil)
	visual := newVisualEditorState()
	chat := newChatInterfaceState()

	ev := StateChangeEvent{Type: EventType("teleport"), Source: SourceVisual}
	_, routed, err := routeAndNotify(t, r, ev, &visual, &chat)
	if err != nil {
		t.Fatalf("unknown types must not error: %v", err)
	}
	if routed {
		t.Error("unknown types must not route")
	}
}

func TestRouteNilNotifiersSafe(t *testing.T) {
	r := newTestRouter(nil, nil)
	visual := newVisualEditorState()
	visual.SelectedBlocks = []string{"b1"}
	chat := newChatInterfaceState()

	events := []StateChangeEvent{
		blockEvent(EventBlockModified, SourceVisual, "b1"),
		blockEvent(EventBlockExecutionStarted, SourceExecution, "b1"),
		{Type: EventWorkflowModified, Source: SourceChat},
	}
	for _, ev := range events {
		if _, _, err := routeAndNotify(t, r, ev, &visual, &chat); err != nil {
			t.Fatalf("routing %s with nil notifiers failed: %v", ev.Type, err)
		}
	}
}

func TestRouteCollectsNotificationsWithoutDispatching(t *testing.T) {
	chatN := &mockChatNotifier{}
	r := newTestRouter(chatN, nil)
	visual := newVisualEditorState()
	chat := newChatInterfaceState()

	ev := blockEvent(EventBlockAdded, SourceVisual, "b1")
	_, routed, notes, err := r.route(ev, &visual, &chat)
	if err != nil || !routed {
		t.Fatalf("expected routed event, got routed=%v err=%v", routed, err)
	}

	// State mutates during routing; notifier calls wait for dispatch.
	if len(chat.PendingDescriptions) != 1 {
		t.Fatalf("expected 1 chat description, got %d", len(chat.PendingDescriptions))
	}
	if len(chatN.descriptions) != 0 {
		t.Fatal("notifier must not be called before dispatch")
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 collected notification, got %d", len(notes))
	}

	notes[0](context.Background())
	if len(chatN.descriptions) != 1 {
		t.Fatal("dispatch should deliver the description")
	}
}
