package flowsync

import (
	"fmt"
	"testing"
)

func makeEvents(n int) []StateChangeEvent {
	events := make([]StateChangeEvent, n)
	for i := range events {
		events[i] = StateChangeEvent{
			ID:      fmt.Sprintf("ev-%c", 'A'+i),
			Type:    EventBlockModified,
			Source:  SourceVisual,
			BlockID: fmt.Sprintf("block-%d", i),
		}
	}
	return events
}

func TestQueueFIFOOrder(t *testing.T) {
	q := newEventQueue(10)
	for _, ev := range makeEvents(3) {
		q.enqueue(ev)
	}

	batch := q.drain(10)
	if len(batch) != 3 {
		t.Fatalf("expected 3 events, got %d", len(batch))
	}
	for i, want := range []string{"ev-A", "ev-B", "ev-C"} {
		if batch[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, batch[i].ID)
		}
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	q := newEventQueue(5)
	events := makeEvents(7) // A..G into capacity 5

	for i, ev := range events {
		evicted, didEvict := q.enqueue(ev)
		if i < 5 && didEvict {
			t.Fatalf("event %d should not evict", i)
		}
		if i == 5 {
			if !didEvict || evicted.ID != "ev-A" {
				t.Fatalf("expected eviction of ev-A, got %q (evicted=%v)", evicted.ID, didEvict)
			}
		}
		if i == 6 {
			if !didEvict || evicted.ID != "ev-B" {
				t.Fatalf("expected eviction of ev-B, got %q (evicted=%v)", evicted.ID, didEvict)
			}
		}
	}

	remaining := q.snapshot()
	want := []string{"ev-C", "ev-D", "ev-E", "ev-F", "ev-G"}
	if len(remaining) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(remaining))
	}
	for i := range want {
		if remaining[i].ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], remaining[i].ID)
		}
	}

	if stats := q.stats(); stats.Dropped != 2 {
		t.Errorf("expected 2 dropped events, got %d", stats.Dropped)
	}
}

func TestQueueDrainRespectsBatchSize(t *testing.T) {
	q := newEventQueue(100)
	for _, ev := range makeEvents(15) {
		q.enqueue(ev)
	}

	first := q.drain(10)
	if len(first) != 10 {
		t.Fatalf("expected batch of 10, got %d", len(first))
	}
	second := q.drain(10)
	if len(second) != 5 {
		t.Fatalf("expected batch of 5, got %d", len(second))
	}
	if second[0].ID != "ev-K" {
		t.Errorf("second batch should continue where the first stopped, got %s", second[0].ID)
	}
	if q.len() != 0 {
		t.Errorf("queue should be empty, has %d", q.len())
	}
}

func TestQueueDrainEmpty(t *testing.T) {
	q := newEventQueue(5)
	if batch := q.drain(10); batch != nil {
		t.Fatalf("expected nil batch from empty queue, got %v", batch)
	}
}

func TestQueueClearKeepsDroppedCount(t *testing.T) {
	q := newEventQueue(2)
	for _, ev := range makeEvents(4) {
		q.enqueue(ev)
	}
	q.clear()

	stats := q.stats()
	if stats.Len != 0 {
		t.Errorf("expected empty queue, got %d", stats.Len)
	}
	if stats.Dropped != 2 {
		t.Errorf("dropped count should survive clear, got %d", stats.Dropped)
	}
}
