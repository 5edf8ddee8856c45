package cache

import (
	"context"
	"testing"
	"time"

	"github.com/platewise/platewise/internal/storage"
)

func TestKey(t *testing.T) {
	input := []byte("chicken and rice")

	if Key("user:1", input) != Key("user:1", input) {
		t.Error("same (user, input) must produce the same key")
	}
	if Key("user:1", input) == Key("user:2", input) {
		t.Error("different users must not share keys")
	}
	if Key("user:1", input) == Key("user:1", []byte("chicken and beans")) {
		t.Error("different inputs must not share keys")
	}
	// The separator prevents boundary ambiguity between user and input.
	if Key("ab", []byte("c")) == Key("a", []byte("bc")) {
		t.Error("key must be unambiguous across the user/input boundary")
	}
}

func TestCache_RoundTrip(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New(NewMemoryStore(), 5*time.Minute, func() time.Time { return now })
	key := Key("user:1", []byte("input"))

	if _, ok := c.Get(context.Background(), key); ok {
		t.Fatal("empty cache should miss")
	}

	c.Put(context.Background(), key, "openai", []byte(`{"reply":"hi"}`))
	e, ok := c.Get(context.Background(), key)
	if !ok {
		t.Fatal("fresh entry should hit")
	}
	if string(e.Value) != `{"reply":"hi"}` || e.ProviderID != "openai" {
		t.Errorf("entry = %+v", e)
	}
}

func TestCache_Expiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New(NewMemoryStore(), 5*time.Minute, func() time.Time { return now })
	key := Key("user:1", []byte("input"))

	c.Put(context.Background(), key, "openai", []byte("v"))

	now = now.Add(5*time.Minute - time.Second)
	if _, ok := c.Get(context.Background(), key); !ok {
		t.Error("entry inside the TTL should hit")
	}

	now = now.Add(time.Second)
	if _, ok := c.Get(context.Background(), key); ok {
		t.Error("entry at the TTL boundary should miss")
	}
}

func TestCache_PurgeExpired(t *testing.T) {
	now := time.Unix(1000, 0)
	store := NewMemoryStore()
	c := New(store, 5*time.Minute, func() time.Time { return now })

	c.Put(context.Background(), "old", "openai", []byte("v"))
	now = now.Add(10 * time.Minute)
	c.Put(context.Background(), "new", "openai", []byte("v"))

	if err := c.PurgeExpired(context.Background()); err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), "old"); ok {
		t.Error("expired entry should be purged from the store")
	}
	if _, ok, _ := store.Get(context.Background(), "new"); !ok {
		t.Error("fresh entry should survive the purge")
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	st, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s := NewSQLiteStore(st.DB())
	now := time.Unix(1000, 0)

	if err := s.Set(context.Background(), "k", Entry{Value: []byte("v1"), ProviderID: "gemini", CreatedAt: now}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Overwrite under the same key.
	if err := s.Set(context.Background(), "k", Entry{Value: []byte("v2"), ProviderID: "openai", CreatedAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	e, ok, err := s.Get(context.Background(), "k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(e.Value) != "v2" || e.ProviderID != "openai" {
		t.Errorf("entry = %+v, want the overwritten value", e)
	}

	if err := s.Purge(context.Background(), now.Add(2*time.Minute)); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, ok, _ := s.Get(context.Background(), "k"); ok {
		t.Error("purged entry should be gone")
	}
}
