package flowsync

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	syncErrors "github.com/c0deZ3R0/go-flow-sync/errors"
)

const (
	defaultBatchSyncInterval         = 500 * time.Millisecond
	defaultBatchSize                 = 10
	defaultConflictResolutionTimeout = 5 * time.Second
	defaultMaxPendingChanges         = 100
)

// Config is the engine's recognized configuration surface.
type Config struct {
	// EnableRealTimeSync selects batched timer-driven processing. When
	// false, QueueStateChange processes the queue synchronously.
	EnableRealTimeSync bool `json:"enable_real_time_sync" yaml:"enable_real_time_sync"`

	// BatchSyncInterval is the scheduler tick period in batched mode.
	BatchSyncInterval time.Duration `json:"batch_sync_interval" yaml:"batch_sync_interval"`

	// BatchSize caps how many events one tick drains.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// ConflictResolutionTimeout bounds automatic resolution per batch.
	ConflictResolutionTimeout time.Duration `json:"conflict_resolution_timeout" yaml:"conflict_resolution_timeout"`

	// MaxPendingChanges is the event queue capacity; overflow drops oldest.
	MaxPendingChanges int `json:"max_pending_changes" yaml:"max_pending_changes"`

	// EnablePerformanceMetrics freezes the rolling counters when false.
	EnablePerformanceMetrics bool `json:"enable_performance_metrics" yaml:"enable_performance_metrics"`

	// EnableVisualHighlighting controls the execution highlight map.
	EnableVisualHighlighting bool `json:"enable_visual_highlighting" yaml:"enable_visual_highlighting"`

	// AutoResolveSimpleConflicts runs the registry's auto strategies after
	// each batch's conflict detection.
	AutoResolveSimpleConflicts bool `json:"auto_resolve_simple_conflicts" yaml:"auto_resolve_simple_conflicts"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		EnableRealTimeSync:         true,
		BatchSyncInterval:          defaultBatchSyncInterval,
		BatchSize:                  defaultBatchSize,
		ConflictResolutionTimeout:  defaultConflictResolutionTimeout,
		MaxPendingChanges:          defaultMaxPendingChanges,
		EnablePerformanceMetrics:   true,
		EnableVisualHighlighting:   true,
		AutoResolveSimpleConflicts: true,
	}
}

// Validate checks the configuration for construction.
func (c Config) Validate() error {
	if c.EnableRealTimeSync && c.BatchSyncInterval <= 0 {
		return syncErrors.NewValidationError(syncErrors.OpEnqueue,
			fmt.Errorf("batch sync interval must be positive in real-time mode, got %s", c.BatchSyncInterval))
	}
	if c.BatchSize <= 0 {
		return syncErrors.NewValidationError(syncErrors.OpEnqueue,
			fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.MaxPendingChanges <= 0 {
		return syncErrors.NewValidationError(syncErrors.OpEnqueue,
			fmt.Errorf("max pending changes must be positive, got %d", c.MaxPendingChanges))
	}
	if c.ConflictResolutionTimeout < 0 {
		return syncErrors.NewValidationError(syncErrors.OpEnqueue,
			fmt.Errorf("conflict resolution timeout must not be negative, got %s", c.ConflictResolutionTimeout))
	}
	return nil
}

// fileConfig mirrors Config with pointer fields so absent keys fall back to
// defaults instead of zero values.
type fileConfig struct {
	EnableRealTimeSync          *bool          `json:"enable_real_time_sync" yaml:"enable_real_time_sync"`
	BatchSyncIntervalMs         *int           `json:"batch_sync_interval_ms" yaml:"batch_sync_interval_ms"`
	BatchSize                   *int           `json:"batch_size" yaml:"batch_size"`
	ConflictResolutionTimeoutMs *int           `json:"conflict_resolution_timeout_ms" yaml:"conflict_resolution_timeout_ms"`
	MaxPendingChanges           *int           `json:"max_pending_changes" yaml:"max_pending_changes"`
	EnablePerformanceMetrics    *bool          `json:"enable_performance_metrics" yaml:"enable_performance_metrics"`
	EnableVisualHighlighting    *bool          `json:"enable_visual_highlighting" yaml:"enable_visual_highlighting"`
	AutoResolveSimpleConflicts  *bool          `json:"auto_resolve_simple_conflicts" yaml:"auto_resolve_simple_conflicts"`
	Metadata                    map[string]any `json:"metadata" yaml:"metadata"`
}

// LoadConfigFile reads engine configuration from a YAML or JSON file,
// applies defaults for absent keys, and validates the result. Format is
// detected from the file extension; unknown extensions are tried as YAML,
// which is a superset of JSON.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	switch detectFormat(path) {
	case "json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("failed to parse JSON config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	if fc.EnableRealTimeSync != nil {
		cfg.EnableRealTimeSync = *fc.EnableRealTimeSync
	}
	if fc.BatchSyncIntervalMs != nil {
		cfg.BatchSyncInterval = time.Duration(*fc.BatchSyncIntervalMs) * time.Millisecond
	}
	if fc.BatchSize != nil {
		cfg.BatchSize = *fc.BatchSize
	}
	if fc.ConflictResolutionTimeoutMs != nil {
		cfg.ConflictResolutionTimeout = time.Duration(*fc.ConflictResolutionTimeoutMs) * time.Millisecond
	}
	if fc.MaxPendingChanges != nil {
		cfg.MaxPendingChanges = *fc.MaxPendingChanges
	}
	if fc.EnablePerformanceMetrics != nil {
		cfg.EnablePerformanceMetrics = *fc.EnablePerformanceMetrics
	}
	if fc.EnableVisualHighlighting != nil {
		cfg.EnableVisualHighlighting = *fc.EnableVisualHighlighting
	}
	if fc.AutoResolveSimpleConflicts != nil {
		cfg.AutoResolveSimpleConflicts = *fc.AutoResolveSimpleConflicts
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func detectFormat(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return "json"
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return "yaml"
	default:
		return "yaml"
	}
}
