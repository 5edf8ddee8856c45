package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is the in-process CounterStore fallback for deployments without
// a shared database. Counters reset on process restart, and each instance
// counts independently, so this path is best-effort only — the constructor
// logs that caveat rather than hiding it.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memCounter
}

type memCounter struct {
	windowStart time.Time
	window      time.Duration
	count       int
}

// NewMemoryStore creates the fallback store and logs its reduced guarantees.
func NewMemoryStore() *MemoryStore {
	slog.Warn("rate limiting using in-memory counters: not shared across instances, reset on restart")
	return &MemoryStore{counters: make(map[string]*memCounter)}
}

func (s *MemoryStore) Incr(_ context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || now.Sub(c.windowStart) >= window {
		c = &memCounter{windowStart: now, window: window, count: 0}
		s.counters[key] = c
	}
	c.count++
	return c.count, c.windowStart, nil
}

// RunSweeper periodically drops expired counters until ctx is cancelled.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.sweep(now)
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.counters {
		if now.Sub(c.windowStart) >= c.window {
			delete(s.counters, key)
		}
	}
}
