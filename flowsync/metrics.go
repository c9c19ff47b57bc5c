package flowsync

import (
	"sync"
	"time"
)

// MetricsCollector provides hooks for observability.
type MetricsCollector interface {
	// RecordSyncDuration records how long a batch took
	RecordSyncDuration(op string, d time.Duration)

	// RecordEventsProcessed records how many events a batch routed
	RecordEventsProcessed(count int)

	// RecordConflicts records how many conflicts were detected or resolved
	RecordConflicts(count int)

	// RecordSyncErrors records sync operation errors
	RecordSyncErrors(op, reason string)
}

// NoOpMetricsCollector is a stub implementation that discards metrics.
type NoOpMetricsCollector struct{}

func (*NoOpMetricsCollector) RecordSyncDuration(op string, d time.Duration) {}
func (*NoOpMetricsCollector) RecordEventsProcessed(count int)               {}
func (*NoOpMetricsCollector) RecordConflicts(count int)                     {}
func (*NoOpMetricsCollector) RecordSyncErrors(op, reason string)            {}

// SyncMetrics is an immutable copy of the engine's rolling counters.
type SyncMetrics struct {
	TotalSyncs       int64
	AverageSyncTime  time.Duration
	ConflictCount    int64
	SyncSuccessRate  float64
	LastSyncDuration time.Duration
	DroppedEvents    uint64
}

// successRateAlpha weights the newest batch outcome in the EWMA.
const successRateAlpha = 0.1

// rollingMetrics maintains the engine's performance counters. The success
// rate is an exponentially weighted moving average so a single failed batch
// decays the rate instead of resetting it.
type rollingMetrics struct {
	mu sync.Mutex

	totalSyncs    int64
	totalDuration time.Duration
	conflictCount int64
	successRate   float64
	lastDuration  time.Duration
	started       bool
}

func newRollingMetrics() *rollingMetrics {
	return &rollingMetrics{successRate: 1.0}
}

func (m *rollingMetrics) recordBatch(d time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalSyncs++
	m.totalDuration += d
	m.lastDuration = d

	outcome := 0.0
	if success {
		outcome = 1.0
	}
	if !m.started {
		m.successRate = outcome
		m.started = true
	} else {
		m.successRate = (1-successRateAlpha)*m.successRate + successRateAlpha*outcome
	}
}

func (m *rollingMetrics) addConflicts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflictCount += int64(n)
}

func (m *rollingMetrics) snapshot(dropped uint64) SyncMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg time.Duration
	if m.totalSyncs > 0 {
		avg = m.totalDuration / time.Duration(m.totalSyncs)
	}
	return SyncMetrics{
		TotalSyncs:       m.totalSyncs,
		AverageSyncTime:  avg,
		ConflictCount:    m.conflictCount,
		SyncSuccessRate:  m.successRate,
		LastSyncDuration: m.lastDuration,
		DroppedEvents:    dropped,
	}
}
