package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback when no shared database is
// configured. Dedup then only applies within one instance; the constructor
// logs that caveat.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates the fallback store and logs its reduced guarantees.
func NewMemoryStore() *MemoryStore {
	slog.Warn("response cache using in-memory store: dedup is per-instance only")
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Purge(_ context.Context, olderThan time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if e.CreatedAt.Before(olderThan) {
			delete(s.entries, key)
		}
	}
	return nil
}
