package sequence

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and the seeder.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

func (s *MemoryStore) IncrementAndFetch(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}
