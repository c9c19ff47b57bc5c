package flowsync

import (
	"log/slog"
	"sync"
)

// subscriberBus notifies registered observers of every processed event.
// Dispatch is synchronous so publications stay ordered with the batch that
// produced them; a panicking callback is recovered and logged, never
// aborting the broadcast to the remaining subscribers.
type subscriberBus struct {
	mu     sync.RWMutex
	subs   map[string]func(StateChangeEvent)
	order  []string
	logger *slog.Logger
}

func newSubscriberBus(logger *slog.Logger) *subscriberBus {
	return &subscriberBus{
		subs:   make(map[string]func(StateChangeEvent)),
		logger: logger,
	}
}

// subscribe registers an observer and returns its unsubscribe function.
// Re-registering an id replaces the previous callback.
func (b *subscriberBus) subscribe(id string, fn func(StateChangeEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[id]; !exists {
		b.order = append(b.order, id)
	}
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, exists := b.subs[id]; !exists {
			return
		}
		delete(b.subs, id)
		for i, other := range b.order {
			if other == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *subscriberBus) publish(ev StateChangeEvent) {
	b.mu.RLock()
	callbacks := make([]func(StateChangeEvent), 0, len(b.order))
	ids := make([]string, 0, len(b.order))
	for _, id := range b.order {
		callbacks = append(callbacks, b.subs[id])
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	for i, fn := range callbacks {
		b.dispatch(ids[i], fn, ev)
	}
}

func (b *subscriberBus) dispatch(id string, fn func(StateChangeEvent), ev StateChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Subscriber panic recovered",
				"subscriber_id", id,
				"event_type", ev.Type,
				"panic", r)
		}
	}()
	fn(ev)
}

func (b *subscriberBus) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *subscriberBus) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]func(StateChangeEvent))
	b.order = nil
}
