package flowsync

import (
	"sort"
	"sync"
)

// conflictStore holds unresolved conflicts until they are resolved,
// automatically or through ResolveConflict. Its contents are exactly the
// conflicts produced since it was last fully drained.
type conflictStore struct {
	mu        sync.RWMutex
	conflicts map[string]SyncConflict
}

func newConflictStore() *conflictStore {
	return &conflictStore{conflicts: make(map[string]SyncConflict)}
}

func (s *conflictStore) add(c SyncConflict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts[c.ID] = c
}

func (s *conflictStore) get(id string) (SyncConflict, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conflicts[id]
	return c, ok
}

func (s *conflictStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conflicts, id)
}

func (s *conflictStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conflicts)
}

func (s *conflictStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = make(map[string]SyncConflict)
}

// list returns the pending conflicts ordered by creation time, then id for
// a stable order within one batch.
func (s *conflictStore) list() []SyncConflict {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SyncConflict, 0, len(s.conflicts))
	for _, c := range s.conflicts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
