package voiceauth

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore records the last successful authentication per user
// in process memory. Clustered deployments use the redis-backed store in
// infrastructure/cache.
type MemorySessionStore struct {
	mu   sync.RWMutex
	last map[string]time.Time
}

// NewMemorySessionStore returns an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{last: make(map[string]time.Time)}
}

// RecordSuccess stamps the user's last successful authentication time.
func (s *MemorySessionStore) RecordSuccess(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[userID] = at
	return nil
}

// LastSuccess returns the user's last successful authentication time.
// The boolean is false when the user has never authenticated.
func (s *MemorySessionStore) LastSuccess(_ context.Context, userID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.last[userID]
	return at, ok, nil
}
