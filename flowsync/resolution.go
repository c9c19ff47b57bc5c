package flowsync

import "sort"

// Resolution is the chosen outcome for a conflict.
type Resolution string

const (
	ResolutionChat   Resolution = "chat"
	ResolutionVisual Resolution = "visual"
	ResolutionMerge  Resolution = "merge"
	ResolutionManual Resolution = "manual"
)

func (r Resolution) valid() bool {
	switch r {
	case ResolutionChat, ResolutionVisual, ResolutionMerge, ResolutionManual:
		return true
	default:
		return false
	}
}

// ResolutionStrategy binds a conflict type to a resolution policy. The
// resolution itself is dispatched over the strategy's type rather than a
// stored closure, keeping strategies serializable and trivially testable.
type ResolutionStrategy struct {
	Type        ConflictType
	AutoResolve bool
	Priority    int
}

// Resolve returns the resolution this strategy proposes for a conflict of
// its type. Strategies that never auto-resolve defer to manual review.
func (s ResolutionStrategy) Resolve(c SyncConflict) Resolution {
	switch s.Type {
	case ConflictConcurrentBlockModification:
		return ResolutionMerge
	case ConflictConcurrentConnectionChange:
		return ResolutionVisual
	default:
		// Execution-state and structural conflicts carry side effects the
		// engine cannot safely pick a winner for.
		return ResolutionManual
	}
}

// StrategyRegistry holds the ordered set of resolution strategies.
// Strategies are kept sorted ascending by priority; more than one strategy
// may target the same conflict type, in which case the lowest-priority
// auto-resolving one wins.
type StrategyRegistry struct {
	strategies []ResolutionStrategy
}

// NewStrategyRegistry returns a registry preloaded with the default
// strategies: block modifications merge automatically, connection changes
// prefer the visual editor, execution-state and structural conflicts wait
// for manual resolution.
func NewStrategyRegistry() *StrategyRegistry {
	r := &StrategyRegistry{}
	r.Register(ResolutionStrategy{Type: ConflictConcurrentBlockModification, AutoResolve: true, Priority: 1})
	r.Register(ResolutionStrategy{Type: ConflictConcurrentConnectionChange, AutoResolve: true, Priority: 2})
	r.Register(ResolutionStrategy{Type: ConflictExecutionState, AutoResolve: false, Priority: 3})
	r.Register(ResolutionStrategy{Type: ConflictStructural, AutoResolve: false, Priority: 4})
	return r
}

// NewEmptyStrategyRegistry returns a registry with no strategies registered.
func NewEmptyStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{}
}

// Register adds a strategy, preserving ascending priority order. Stable for
// equal priorities: earlier registrations keep precedence.
func (r *StrategyRegistry) Register(s ResolutionStrategy) {
	r.strategies = append(r.strategies, s)
	sort.SliceStable(r.strategies, func(i, j int) bool {
		return r.strategies[i].Priority < r.strategies[j].Priority
	})
}

// Strategies returns a copy of the registered strategies in priority order.
func (r *StrategyRegistry) Strategies() []ResolutionStrategy {
	out := make([]ResolutionStrategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// AutoStrategyFor returns the first auto-resolving strategy matching the
// conflict type, honoring priority order.
func (r *StrategyRegistry) AutoStrategyFor(t ConflictType) (ResolutionStrategy, bool) {
	for _, s := range r.strategies {
		if s.Type == t && s.AutoResolve {
			return s, true
		}
	}
	return ResolutionStrategy{}, false
}
