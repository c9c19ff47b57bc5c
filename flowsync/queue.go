package flowsync

import "sync"

// QueueStats reports the queue's current occupancy and lifetime drops.
type QueueStats struct {
	Len      int
	Capacity int
	Dropped  uint64
}

// eventQueue is a bounded FIFO of pending state changes. On overflow the
// oldest entry is evicted: data loss under sustained producer pressure is
// intentional backpressure, not an error.
type eventQueue struct {
	mu       sync.Mutex
	items    []StateChangeEvent
	capacity int
	dropped  uint64
}

func newEventQueue(capacity int) *eventQueue {
	if capacity <= 0 {
		capacity = defaultMaxPendingChanges
	}
	return &eventQueue{
		items:    make([]StateChangeEvent, 0, capacity),
		capacity: capacity,
	}
}

// enqueue appends ev, evicting the oldest entry when the queue is full.
// It returns the evicted event and whether an eviction happened.
func (q *eventQueue) enqueue(ev StateChangeEvent) (StateChangeEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var evicted StateChangeEvent
	var didEvict bool
	if len(q.items) >= q.capacity {
		evicted = q.items[0]
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		q.dropped++
		didEvict = true
	}
	q.items = append(q.items, ev)
	return evicted, didEvict
}

// drain removes and returns up to max events in FIFO order.
func (q *eventQueue) drain(max int) []StateChangeEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 || max <= 0 {
		return nil
	}
	n := max
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := make([]StateChangeEvent, n)
	copy(batch, q.items[:n])
	remaining := copy(q.items, q.items[n:])
	q.items = q.items[:remaining]
	return batch
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *eventQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

func (q *eventQueue) stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{Len: len(q.items), Capacity: q.capacity, Dropped: q.dropped}
}

// snapshot returns a copy of the queued events, oldest first.
func (q *eventQueue) snapshot() []StateChangeEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]StateChangeEvent, len(q.items))
	copy(out, q.items)
	return out
}
