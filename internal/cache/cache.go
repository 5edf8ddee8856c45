// Package cache deduplicates identical (user, input) analysis requests
// within a short TTL window.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultTTL bounds how long a cached analysis stays valid.
const DefaultTTL = 5 * time.Minute

// Entry is a cached analysis result tagged with its producing provider.
type Entry struct {
	Value      []byte
	ProviderID string
	CreatedAt  time.Time
}

// Store persists cache entries. Implementations must be safe for concurrent
// use and must not hold locks across I/O.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Purge(ctx context.Context, olderThan time.Time) error
}

// Cache is the response deduplicator. The clock is injected so tests control
// expiry deterministically.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// New creates a Cache over the given store. ttl <= 0 uses DefaultTTL; a nil
// clock uses time.Now.
func New(store Store, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{store: store, ttl: ttl, now: now}
}

// Key hashes (userKey, input bytes) into a stable cache key.
func Key(userKey string, input []byte) string {
	h := sha256.New()
	h.Write([]byte(userKey))
	h.Write([]byte{0})
	h.Write(input)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the entry for key if present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, false
	}
	if c.now().Sub(e.CreatedAt) >= c.ttl {
		return Entry{}, false
	}
	return e, true
}

// Put stores a value under key. Store failures are swallowed: the cache is an
// optimization, not a source of truth.
func (c *Cache) Put(ctx context.Context, key, providerID string, value []byte) {
	_ = c.store.Set(ctx, key, Entry{Value: value, ProviderID: providerID, CreatedAt: c.now()})
}

// PurgeExpired removes entries older than the TTL.
func (c *Cache) PurgeExpired(ctx context.Context) error {
	return c.store.Purge(ctx, c.now().Add(-c.ttl))
}
