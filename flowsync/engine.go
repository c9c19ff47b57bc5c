package flowsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	syncErrors "github.com/c0deZ3R0/go-flow-sync/errors"
	"github.com/c0deZ3R0/go-flow-sync/logging"
	"github.com/c0deZ3R0/go-flow-sync/snapshot"
)

// SyncState is the engine's process-wide state machine.
type SyncState string

const (
	SyncStateIdle     SyncState = "idle"
	SyncStateSyncing  SyncState = "syncing"
	SyncStateConflict SyncState = "conflict"
)

// SyncEngine keeps the visual and chat representations of one workflow
// session consistent. Construct one per session with New; there is no
// package-level instance.
type SyncEngine struct {
	config    Config
	logger    *slog.Logger
	collector MetricsCollector
	registry  *StrategyRegistry
	journal   Journal
	router    *eventRouter

	queue     *eventQueue
	conflicts *conflictStore
	metrics   *rollingMetrics
	bus       *subscriberBus

	// mu guards lifecycle, the sync state machine and the scheduler.
	mu            sync.Mutex
	syncState     SyncState
	closed        bool
	realtime      bool
	stopScheduler chan struct{}
	schedulerDone chan struct{}

	// stateMu guards the session state snapshots. The engine is their sole
	// writer; accessors hand out copies.
	stateMu      sync.RWMutex
	visual       VisualEditorState
	chat         ChatInterfaceState
	hybrid       HybridModeState
	lastSnapshot []byte
}

// New constructs a sync engine for one editing session. In real-time mode
// the batch scheduler starts immediately; otherwise events are processed
// synchronously on enqueue.
func New(opts ...Option) (*SyncEngine, error) {
	o := &engineOptions{
		config:    DefaultConfig(),
		logger:    logging.WithComponent(logging.Component("flowsync")).Logger,
		collector: &NoOpMetricsCollector{},
		registry:  NewStrategyRegistry(),
	}
	for _, opt := range opts {
		opt.apply(o)
	}

	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	e := &SyncEngine{
		config:    o.config,
		logger:    o.logger,
		collector: o.collector,
		registry:  o.registry,
		journal:   o.journal,
		queue:     newEventQueue(o.config.MaxPendingChanges),
		conflicts: newConflictStore(),
		metrics:   newRollingMetrics(),
		syncState: SyncStateIdle,
		visual:    newVisualEditorState(),
		chat:      newChatInterfaceState(),
		hybrid:    newHybridModeState(),
	}
	e.bus = newSubscriberBus(o.logger)
	e.router = &eventRouter{
		logger:         o.logger,
		chatNotifier:   o.chatNotifier,
		visualNotifier: o.visualNotifier,
		highlighting:   o.config.EnableVisualHighlighting,
	}

	if e.config.EnableRealTimeSync {
		if err := e.EnableSync(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// QueueStateChange enqueues a state change for synchronization. In
// immediate mode the queue is processed before returning. A full queue
// evicts its oldest entry: intentional backpressure, logged, never an
// error for the caller.
func (e *SyncEngine) QueueStateChange(ctx context.Context, ev StateChangeEvent) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return syncErrors.New(syncErrors.OpEnqueue, fmt.Errorf("sync engine is disposed"))
	}
	immediate := !e.realtime
	e.mu.Unlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.ID == "" {
		ev.ID = newEventID(ev.Timestamp)
	}

	if evicted, didEvict := e.queue.enqueue(ev); didEvict {
		overflowErr := syncErrors.NewOverflowError(syncErrors.OpEnqueue,
			fmt.Errorf("queue at capacity %d, oldest event evicted", e.config.MaxPendingChanges))
		e.logger.Warn("Event queue overflow, dropping oldest event",
			"evicted_event_id", evicted.ID,
			"evicted_event_type", evicted.Type,
			"error", overflowErr)
		e.collector.RecordSyncErrors("enqueue", "queue_overflow")
	}

	if immediate {
		e.processQueue(ctx)
	}
	return nil
}

// Subscribe registers an observer notified of every processed event and
// returns its unsubscribe function.
func (e *SyncEngine) Subscribe(id string, callback func(StateChangeEvent)) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, syncErrors.New(syncErrors.OpEnqueue, fmt.Errorf("sync engine is disposed"))
	}
	return e.bus.subscribe(id, callback), nil
}

// EnableSync starts the batch scheduler. Calling it while the scheduler is
// already running is a no-op.
func (e *SyncEngine) EnableSync() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return syncErrors.New(syncErrors.OpBatch, fmt.Errorf("sync engine is disposed"))
	}
	if e.config.BatchSyncInterval <= 0 {
		return syncErrors.NewValidationError(syncErrors.OpBatch,
			fmt.Errorf("batch sync interval must be positive to enable batched sync, got %s", e.config.BatchSyncInterval))
	}
	if e.stopScheduler != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	e.stopScheduler = stop
	e.schedulerDone = done
	e.realtime = true

	go e.runScheduler(stop, done)
	e.logger.Debug("Batch scheduler started", "interval", e.config.BatchSyncInterval)
	return nil
}

// DisableSync stops the batch scheduler and flips the engine to immediate
// processing; events still queued are flushed before it returns.
func (e *SyncEngine) DisableSync() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return syncErrors.New(syncErrors.OpBatch, fmt.Errorf("sync engine is disposed"))
	}
	stop, done := e.stopScheduler, e.schedulerDone
	e.stopScheduler, e.schedulerDone = nil, nil
	e.realtime = false
	e.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	e.processQueue(context.Background())
	e.logger.Debug("Batch scheduler stopped, immediate processing enabled")
	return nil
}

// runScheduler drives periodic batch processing until stopped.
func (e *SyncEngine) runScheduler(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.config.BatchSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.processBatch(context.Background())
		}
	}
}

// processQueue drains the queue one batch at a time. It stops early when a
// batch is already in flight (single-flight guard) or the engine closes.
func (e *SyncEngine) processQueue(ctx context.Context) {
	for e.queue.len() > 0 {
		if !e.processBatch(ctx) {
			return
		}
	}
}

// processBatch drains and processes up to one batch. Returns false when
// nothing was processed: empty queue, disposed engine, or a batch already
// syncing.
func (e *SyncEngine) processBatch(ctx context.Context) bool {
	e.mu.Lock()
	if e.closed || e.syncState == SyncStateSyncing {
		e.mu.Unlock()
		return false
	}
	e.syncState = SyncStateSyncing
	e.mu.Unlock()

	batch := e.queue.drain(e.config.BatchSize)
	if len(batch) == 0 {
		e.settleSyncState()
		return false
	}

	start := time.Now()
	success := true

	func() {
		defer func() {
			if r := recover(); r != nil {
				success = false
				e.logger.Error("Batch processing panic recovered",
					"panic", r,
					"batch_size", len(batch))
				e.collector.RecordSyncErrors("batch", "panic")
			}
		}()

		pending := make([]PendingChange, 0, len(batch))
		for _, ev := range batch {
			pc, routed, err := e.routeEvent(ctx, ev)
			if err != nil {
				// Per-event failure never stops the batch.
				e.logger.Warn("Event routing failed, skipping event",
					"event_id", ev.ID,
					"event_type", ev.Type,
					"error", err)
				e.collector.RecordSyncErrors("route", string(syncErrors.CodeOf(err)))
			} else if routed {
				pending = append(pending, pc)
			}

			// Publish regardless of routing outcome.
			e.bus.publish(ev)
		}

		if conflicts := detectConflicts(pending, time.Now()); len(conflicts) > 0 {
			for _, c := range conflicts {
				e.conflicts.add(c)
			}
			if e.config.EnablePerformanceMetrics {
				e.metrics.addConflicts(len(conflicts))
			}
			e.collector.RecordConflicts(len(conflicts))
			e.logger.Info("Conflicts detected in batch",
				"conflict_count", len(conflicts),
				"batch_size", len(batch))

			if e.config.AutoResolveSimpleConflicts {
				e.autoResolveConflicts(ctx)
			}
		}

		e.collector.RecordEventsProcessed(len(batch))
	}()

	duration := time.Since(start)
	if e.config.EnablePerformanceMetrics {
		e.metrics.recordBatch(duration, success)
	}
	e.collector.RecordSyncDuration("batch", duration)

	e.settleSyncState()
	return true
}

// settleSyncState leaves syncing for idle or conflict depending on whether
// unresolved conflicts remain.
func (e *SyncEngine) settleSyncState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.conflicts.len() > 0 {
		e.syncState = SyncStateConflict
	} else {
		e.syncState = SyncStateIdle
	}
}

// routeEvent routes one event under the state lock, then dispatches the
// collaborator notifications the router collected once the lock is released.
// Notifiers may therefore call back into the engine's accessors.
func (e *SyncEngine) routeEvent(ctx context.Context, ev StateChangeEvent) (PendingChange, bool, error) {
	e.stateMu.Lock()
	pc, routed, notes, err := e.router.route(ev, &e.visual, &e.chat)
	e.stateMu.Unlock()

	for _, notify := range notes {
		notify(ctx)
	}
	return pc, routed, err
}

// autoResolveConflicts applies the first matching auto-resolve strategy to
// each pending conflict, bounded by the configured resolution timeout.
// Conflicts whose strategies decline stay queued for manual resolution.
func (e *SyncEngine) autoResolveConflicts(ctx context.Context) {
	rctx := ctx
	if e.config.ConflictResolutionTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, e.config.ConflictResolutionTimeout)
		defer cancel()
	}

	for _, c := range e.conflicts.list() {
		select {
		case <-rctx.Done():
			e.logger.Warn("Automatic conflict resolution timed out",
				"remaining_conflicts", e.conflicts.len())
			e.collector.RecordSyncErrors("conflict_resolve", "timeout")
			return
		default:
		}

		strategy, ok := e.registry.AutoStrategyFor(c.Type)
		if !ok {
			continue
		}
		resolution := strategy.Resolve(c)
		if resolution == ResolutionManual {
			continue
		}
		e.applyResolution(rctx, c, resolution, true)
	}
}

// ResolveConflict is the manual resolution path. An unknown conflict id is
// a logged no-op, not an error.
func (e *SyncEngine) ResolveConflict(ctx context.Context, conflictID string, resolution Resolution) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return syncErrors.New(syncErrors.OpConflictResolve, fmt.Errorf("sync engine is disposed"))
	}
	e.mu.Unlock()

	if !resolution.valid() || resolution == ResolutionManual {
		return syncErrors.NewValidationError(syncErrors.OpConflictResolve,
			fmt.Errorf("invalid resolution %q", resolution))
	}

	c, ok := e.conflicts.get(conflictID)
	if !ok {
		e.logger.Warn("Resolve requested for unknown conflict, ignoring",
			"conflict_id", conflictID,
			"resolution", resolution)
		return nil
	}

	e.applyResolution(ctx, c, resolution, false)
	return nil
}

// applyResolution applies a chosen resolution, removes the conflict from
// the store, records it in the journal and surfaces it in the chat feed.
func (e *SyncEngine) applyResolution(ctx context.Context, c SyncConflict, resolution Resolution, auto bool) {
	desc := describeResolution(c, resolution, auto)

	e.stateMu.Lock()
	e.chat.PendingDescriptions = append(e.chat.PendingDescriptions, desc)
	e.chat.HistoryPointer++
	e.stateMu.Unlock()

	if e.router.chatNotifier != nil {
		e.router.chatNotifier.ChangeDescribed(ctx, workflowIDOf(c), desc)
	}

	e.conflicts.remove(c.ID)

	if e.journal != nil {
		rec := ResolutionRecord{
			ID:           uuid.NewString(),
			ConflictID:   c.ID,
			ConflictType: c.Type,
			TargetKey:    c.TargetKey,
			Resolution:   resolution,
			Auto:         auto,
			ResolvedAt:   time.Now(),
			Details:      map[string]any{"changes": len(c.Changes)},
		}
		if err := e.journal.RecordResolution(ctx, rec); err != nil {
			e.logger.Error("Failed to journal conflict resolution",
				"conflict_id", c.ID,
				"error", syncErrors.NewStorageError(syncErrors.OpJournal, err))
		}
	}

	e.logger.Info("Conflict resolved",
		"conflict_id", c.ID,
		"conflict_type", c.Type,
		"resolution", resolution,
		"auto", auto)

	// Outside a running batch the state machine settles immediately.
	e.mu.Lock()
	if !e.closed && e.syncState != SyncStateSyncing {
		if e.conflicts.len() > 0 {
			e.syncState = SyncStateConflict
		} else {
			e.syncState = SyncStateIdle
		}
	}
	e.mu.Unlock()
}

// HandleModeTransition switches the active view mode: capture a snapshot,
// update the mode, then run the target mode's adaptation from the
// snapshot. Repeated transitions to the same mode are idempotent.
func (e *SyncEngine) HandleModeTransition(ctx context.Context, from, to ViewMode, tc ModeTransitionContext) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return syncErrors.New(syncErrors.OpTransition, fmt.Errorf("sync engine is disposed"))
	}
	e.mu.Unlock()

	if !to.valid() {
		return syncErrors.NewValidationError(syncErrors.OpTransition,
			fmt.Errorf("invalid target mode %q", to))
	}

	now := time.Now()

	e.stateMu.Lock()
	snap := SessionSnapshot{
		Visual:  e.visual.clone(),
		Chat:    e.chat.clone(),
		Hybrid:  e.hybrid,
		TakenAt: now,
	}
	changed := e.hybrid.CurrentMode != to
	e.hybrid.CurrentMode = to
	applyModeAdaptation(to, snap, &e.visual, &e.chat, &e.hybrid)
	if changed {
		e.hybrid.LastTransition = now
	}
	e.stateMu.Unlock()

	encoded, err := snapshot.Encode(snap)
	if err != nil {
		e.logger.Error("Failed to encode session snapshot",
			"error", syncErrors.NewWithComponent(syncErrors.OpTransition, "snapshot", err))
	} else {
		e.stateMu.Lock()
		e.lastSnapshot = encoded
		e.stateMu.Unlock()
	}

	if e.journal != nil {
		rec := TransitionRecord{
			ID:       uuid.NewString(),
			FromMode: from,
			ToMode:   to,
			At:       now,
			Snapshot: encoded,
		}
		if err := e.journal.RecordTransition(ctx, rec); err != nil {
			e.logger.Error("Failed to journal mode transition",
				"from", from,
				"to", to,
				"error", syncErrors.NewStorageError(syncErrors.OpJournal, err))
		}
	}

	e.bus.publish(StateChangeEvent{
		ID:        newEventID(now),
		Type:      EventModeTransition,
		Source:    sourceForMode(from),
		Timestamp: now,
		Data: map[string]any{
			"from":   string(from),
			"to":     string(to),
			"reason": tc.Reason,
		},
	})

	e.logger.Debug("Mode transition applied", "from", from, "to", to, "changed", changed)
	return nil
}

// RestoreSnapshot re-applies a previously encoded session snapshot, e.g.
// when resuming a session.
func (e *SyncEngine) RestoreSnapshot(raw []byte) error {
	decoded, err := snapshot.Decode(raw)
	if err != nil {
		return syncErrors.NewWithComponent(syncErrors.OpTransition, "snapshot", err)
	}
	ss, ok := decoded.(SessionSnapshot)
	if !ok {
		return syncErrors.NewValidationError(syncErrors.OpTransition,
			fmt.Errorf("snapshot kind %q is not a session snapshot", decoded.Kind()))
	}

	e.stateMu.Lock()
	e.visual = ss.Visual.clone()
	e.chat = ss.Chat.clone()
	e.hybrid = ss.Hybrid
	e.stateMu.Unlock()
	return nil
}

// GetSyncMetrics returns an immutable copy of the rolling counters.
func (e *SyncEngine) GetSyncMetrics() SyncMetrics {
	return e.metrics.snapshot(e.queue.stats().Dropped)
}

// GetHybridModeState returns a copy of the hybrid mode state.
func (e *SyncEngine) GetHybridModeState() HybridModeState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.hybrid
}

// GetVisualState returns a copy of the visual editor state.
func (e *SyncEngine) GetVisualState() VisualEditorState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.visual.clone()
}

// GetChatState returns a copy of the chat interface state.
func (e *SyncEngine) GetChatState() ChatInterfaceState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.chat.clone()
}

// PendingConflicts returns the unresolved conflicts, oldest first.
func (e *SyncEngine) PendingConflicts() []SyncConflict {
	return e.conflicts.list()
}

// State returns the engine's current sync state.
func (e *SyncEngine) State() SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncState
}

// QueueStats reports queue occupancy and lifetime dropped events.
func (e *SyncEngine) QueueStats() QueueStats {
	return e.queue.stats()
}

// Dispose stops the scheduler and drops all queued, pending and conflict
// state. A hard reset, not a graceful drain; safe to call more than once.
func (e *SyncEngine) Dispose() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	stop, done := e.stopScheduler, e.schedulerDone
	e.stopScheduler, e.schedulerDone = nil, nil
	e.syncState = SyncStateIdle
	e.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	e.bus.clear()
	e.queue.clear()
	e.conflicts.clear()

	e.logger.Debug("Sync engine disposed")
	return nil
}

// workflowIDOf picks a workflow id from a conflict's changes for notifications.
func workflowIDOf(c SyncConflict) string {
	for _, pc := range c.Changes {
		if pc.Event.WorkflowID != "" {
			return pc.Event.WorkflowID
		}
	}
	return ""
}

// sourceForMode maps the representation a transition left to an event source.
func sourceForMode(m ViewMode) EventSource {
	if m == ModeChat {
		return SourceChat
	}
	return SourceVisual
}
