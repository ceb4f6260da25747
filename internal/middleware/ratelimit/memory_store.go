package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps window state in process memory. Only suitable for a
// single server instance; multi-instance deployments need the redis store.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemoryStore creates a new in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hits: make(map[string][]time.Time),
	}
}

// Hit records one request and returns the count within the window.
func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	kept := s.hits[key][:0]
	for _, t := range s.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	s.hits[key] = kept

	return len(kept), nil
}
