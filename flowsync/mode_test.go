package flowsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSelection(e *SyncEngine, blocks ...string) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.visual.SelectedBlocks = append([]string(nil), blocks...)
}

func TestTransitionToChatSummarizesSelection(t *testing.T) {
	e := newTestEngine(t, nil)
	seedSelection(e, "b1", "b2")

	err := e.HandleModeTransition(context.Background(), ModeVisual, ModeChat, ModeTransitionContext{Reason: "user toggle"})
	require.NoError(t, err)

	hybrid := e.GetHybridModeState()
	assert.Equal(t, ModeChat, hybrid.CurrentMode)
	assert.False(t, hybrid.LastTransition.IsZero())

	chat := e.GetChatState()
	assert.Contains(t, chat.ContextSummary, "2 block(s) selected")
	assert.Contains(t, chat.ContextSummary, "b1, b2")
}

func TestTransitionWithoutSelection(t *testing.T) {
	e := newTestEngine(t, nil)

	require.NoError(t, e.HandleModeTransition(context.Background(), ModeVisual, ModeChat, ModeTransitionContext{}))
	assert.Equal(t, "No selection.", e.GetChatState().ContextSummary)
}

func TestRepeatedTransitionIsIdempotent(t *testing.T) {
	e := newTestEngine(t, nil)
	seedSelection(e, "b1")
	ctx := context.Background()

	require.NoError(t, e.HandleModeTransition(ctx, ModeVisual, ModeChat, ModeTransitionContext{}))
	first := e.GetHybridModeState()
	firstChat := e.GetChatState()

	require.NoError(t, e.HandleModeTransition(ctx, ModeVisual, ModeChat, ModeTransitionContext{}))
	second := e.GetHybridModeState()
	secondChat := e.GetChatState()

	assert.Equal(t, first, second)
	assert.Equal(t, firstChat.ContextSummary, secondChat.ContextSummary)
}

func TestTransitionToVisualRebuildsHighlights(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.EnableRealTimeSync = false })
	ctx := context.Background()

	require.NoError(t, e.QueueStateChange(ctx, blockEvent(EventBlockExecutionStarted, SourceExecution, "b1")))
	require.NoError(t, e.HandleModeTransition(ctx, ModeVisual, ModeChat, ModeTransitionContext{}))
	require.NoError(t, e.HandleModeTransition(ctx, ModeChat, ModeVisual, ModeTransitionContext{}))

	visual := e.GetVisualState()
	assert.Equal(t, HighlightActive, visual.ExecutionHighlights["b1"])
}

func TestTransitionToHybridClampsSplitRatio(t *testing.T) {
	e := newTestEngine(t, nil)

	e.stateMu.Lock()
	e.hybrid.SplitRatio = 1.8
	e.stateMu.Unlock()

	require.NoError(t, e.HandleModeTransition(context.Background(), ModeVisual, ModeHybrid, ModeTransitionContext{}))
	assert.Equal(t, 0.5, e.GetHybridModeState().SplitRatio)
}

func TestTransitionPublishesModeEvent(t *testing.T) {
	e := newTestEngine(t, nil)

	var events []StateChangeEvent
	_, err := e.Subscribe("test", func(ev StateChangeEvent) { events = append(events, ev) })
	require.NoError(t, err)

	require.NoError(t, e.HandleModeTransition(context.Background(), ModeVisual, ModeChat, ModeTransitionContext{Reason: "shortcut"}))

	require.Len(t, events, 1)
	assert.Equal(t, EventModeTransition, events[0].Type)
	assert.Equal(t, "visual", events[0].Data["from"])
	assert.Equal(t, "chat", events[0].Data["to"])
	assert.Equal(t, "shortcut", events[0].Data["reason"])
}

func TestTransitionRejectsInvalidMode(t *testing.T) {
	e := newTestEngine(t, nil)
	err := e.HandleModeTransition(context.Background(), ModeVisual, ViewMode("vr"), ModeTransitionContext{})
	require.Error(t, err)
}

func TestTransitionJournaled(t *testing.T) {
	journal := &mockJournal{}
	e := newTestEngine(t, nil, WithJournal(journal))

	require.NoError(t, e.HandleModeTransition(context.Background(), ModeVisual, ModeChat, ModeTransitionContext{}))

	journal.mu.Lock()
	defer journal.mu.Unlock()
	require.Len(t, journal.transitions, 1)
	assert.Equal(t, ModeVisual, journal.transitions[0].FromMode)
	assert.Equal(t, ModeChat, journal.transitions[0].ToMode)
	assert.NotEmpty(t, journal.transitions[0].Snapshot, "transitions carry the encoded snapshot")
}

func TestRestoreSnapshotRoundTrip(t *testing.T) {
	e := newTestEngine(t, nil)
	seedSelection(e, "b1", "b2")

	require.NoError(t, e.HandleModeTransition(context.Background(), ModeVisual, ModeChat, ModeTransitionContext{}))

	e.stateMu.RLock()
	raw := append([]byte(nil), e.lastSnapshot...)
	e.stateMu.RUnlock()
	require.NotEmpty(t, raw)

	restored := newTestEngine(t, nil)
	require.NoError(t, restored.RestoreSnapshot(raw))

	visual := restored.GetVisualState()
	assert.Equal(t, []string{"b1", "b2"}, visual.SelectedBlocks)
}

func TestRestoreSnapshotRejectsGarbage(t *testing.T) {
	e := newTestEngine(t, nil)
	require.Error(t, e.RestoreSnapshot([]byte("not a snapshot")))
}
