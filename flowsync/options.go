package flowsync

import "log/slog"

// engineOptions holds construction-time options.
type engineOptions struct {
	config         Config
	logger         *slog.Logger
	collector      MetricsCollector
	registry       *StrategyRegistry
	journal        Journal
	chatNotifier   ChatNotifier
	visualNotifier VisualNotifier
}

// Option configures a SyncEngine at construction time.
type Option interface{ apply(*engineOptions) }

type optionFn func(*engineOptions)

func (f optionFn) apply(o *engineOptions) { f(o) }

// WithConfig replaces the default engine configuration.
func WithConfig(cfg Config) Option {
	return optionFn(func(o *engineOptions) { o.config = cfg })
}

// WithLogger sets the engine's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return optionFn(func(o *engineOptions) { o.logger = logger })
}

// WithMetricsCollector sets the observability hook. Defaults to a no-op.
func WithMetricsCollector(mc MetricsCollector) Option {
	return optionFn(func(o *engineOptions) { o.collector = mc })
}

// WithStrategyRegistry replaces the default conflict resolution strategies.
func WithStrategyRegistry(r *StrategyRegistry) Option {
	return optionFn(func(o *engineOptions) { o.registry = r })
}

// WithJournal attaches a persistent journal recording every resolution and
// mode transition. Journal failures are absorbed and logged.
func WithJournal(j Journal) Option {
	return optionFn(func(o *engineOptions) { o.journal = j })
}

// WithChatNotifier attaches the chat interface collaborator.
func WithChatNotifier(n ChatNotifier) Option {
	return optionFn(func(o *engineOptions) { o.chatNotifier = n })
}

// WithVisualNotifier attaches the visual editor collaborator.
func WithVisualNotifier(n VisualNotifier) Option {
	return optionFn(func(o *engineOptions) { o.visualNotifier = n })
}
