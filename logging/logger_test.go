package logging

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/c0deZ3R0/go-flow-sync/errors"
)

func TestLogger(t *testing.T) {
	// Test different environments
	configs := []Config{
		{Level: "debug", Format: "text", Environment: EnvDevelopment, AddSource: true},
		{Level: "info", Format: "json", Environment: EnvProduction, AddSource: false},
	}

	for _, config := range configs {
		t.Run("Environment_"+config.Environment, func(t *testing.T) {
			logger := NewLogger(config)

			// Test basic logging
			logger.Debug("Debug message", slog.String("key", "value"))
			logger.Info("Info message", slog.Int("count", 42))
			logger.Warn("Warning message", slog.Bool("enabled", true))

			// Test error logging
			testErr := errors.New(errors.OpEnqueue, fmt.Errorf("queue error"))
			logger.LogError(context.Background(), testErr, "Operation failed")

			// Test child loggers
			childLogger := logger.WithComponent(Component("test"))
			childLogger.Info("Child logger message")

			// Test operation logging
			err := logger.LogOperation(
				context.Background(),
				Operation("test_op"),
				Component("test_component"),
				func() error {
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestSyncErrorValuer(t *testing.T) {
	syncErr := &errors.SyncError{
		Op:        errors.OpBatch,
		Component: "test",
		Code:      errors.ErrCodeStorageFailure,
		Err:       fmt.Errorf("underlying error"),
		Retryable: true,
		Metadata: map[string]interface{}{
			"retry_count": 3,
			"timeout":     "30s",
		},
	}

	valuer := SyncErrorValuer{SyncError: syncErr}
	logValue := valuer.LogValue()

	// Verify the log value is properly structured
	if logValue.Kind() != slog.KindGroup {
		t.Errorf("Expected group value, got %v", logValue.Kind())
	}
}

func TestContextExtraction(t *testing.T) {
	ctx := context.WithValue(context.Background(), "session_id", "sess-123")
	ctx = context.WithValue(ctx, "workflow_id", "wf-456")

	logger := NewLogger(Config{Level: "debug", Format: "text", Environment: EnvTest})
	contextLogger := logger.WithContext(ctx)

	contextLogger.Info("Message with context")
}

func BenchmarkLogger(b *testing.B) {
	config := Config{
		Level:       "info",
		Format:      "json",
		Environment: EnvProduction,
		AddSource:   false,
	}
	logger := NewLogger(config)

	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.InfoContext(ctx, "Benchmark message",
			slog.String("operation", "benchmark"),
			slog.Int("iteration", i),
			slog.Duration("elapsed", time.Microsecond*100),
		)
	}
}
