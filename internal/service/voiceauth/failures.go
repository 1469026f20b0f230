package voiceauth

import (
	"context"
	"sync"
)

// MemoryFailureStore tracks consecutive failed attempts per user in
// process memory. It satisfies FailureStore for single-instance
// deployments and tests; clustered deployments use the redis-backed
// store in infrastructure/cache.
type MemoryFailureStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryFailureStore returns an empty in-memory failure store.
func NewMemoryFailureStore() *MemoryFailureStore {
	return &MemoryFailureStore{counts: make(map[string]int)}
}

// Increment bumps the user's consecutive failure count and returns the
// new value.
func (s *MemoryFailureStore) Increment(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[userID]++
	return s.counts[userID], nil
}

// Reset clears the user's consecutive failure count.
func (s *MemoryFailureStore) Reset(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, userID)
	return nil
}

// Count returns the user's current consecutive failure count.
func (s *MemoryFailureStore) Count(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[userID], nil
}
