package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Time, time.Duration) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("store down")
}

func TestCheck_DeniesOverLimit(t *testing.T) {
	l := New(NewMemoryStore(), Windows(3, 100), nil)

	for i := 0; i < 3; i++ {
		if d := l.Check(context.Background(), "user:1"); !d.Allowed {
			t.Fatalf("request %d denied, limit is 3: %s", i+1, d)
		}
	}
	d := l.Check(context.Background(), "user:1")
	if d.Allowed {
		t.Fatal("request 4 should be denied")
	}
	if d.Window != "minute" {
		t.Errorf("denying window = %q, want minute", d.Window)
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Errorf("retryAfter = %s, want within (0, 1m]", d.RetryAfter)
	}
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	l := New(NewMemoryStore(), Windows(1, 100), nil)

	if d := l.Check(context.Background(), "user:a"); !d.Allowed {
		t.Fatal("first request for a should pass")
	}
	if d := l.Check(context.Background(), "user:a"); d.Allowed {
		t.Fatal("second request for a should be denied")
	}
	if d := l.Check(context.Background(), "user:b"); !d.Allowed {
		t.Error("b's budget is independent of a's")
	}
}

func TestCheck_WindowResets(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(NewMemoryStore(), Windows(1, 100), func() time.Time { return now })

	if d := l.Check(context.Background(), "user:1"); !d.Allowed {
		t.Fatal("first request should pass")
	}
	if d := l.Check(context.Background(), "user:1"); d.Allowed {
		t.Fatal("second request in the same minute should be denied")
	}

	now = now.Add(time.Minute)
	if d := l.Check(context.Background(), "user:1"); !d.Allowed {
		t.Error("request after window elapse should pass")
	}
}

func TestCheck_DayWindow(t *testing.T) {
	l := New(NewMemoryStore(), Windows(100, 2), nil)

	l.Check(context.Background(), "user:1")
	l.Check(context.Background(), "user:1")
	d := l.Check(context.Background(), "user:1")
	if d.Allowed {
		t.Fatal("third request should exceed the day limit")
	}
	if d.Window != "day" {
		t.Errorf("denying window = %q, want day", d.Window)
	}
}

func TestCheck_FailsOpenOnStoreError(t *testing.T) {
	l := New(failingStore{}, Windows(1, 1), nil)
	if d := l.Check(context.Background(), "user:1"); !d.Allowed {
		t.Error("a broken store must fail open, not refuse traffic")
	}
}

func TestCheck_ZeroLimitSkipsWindow(t *testing.T) {
	l := New(NewMemoryStore(), []Window{{Name: "minute", Duration: time.Minute, Limit: 0}}, nil)
	for i := 0; i < 5; i++ {
		if d := l.Check(context.Background(), "user:1"); !d.Allowed {
			t.Fatal("zero limit disables the window")
		}
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1000, 0)
	s.Incr(context.Background(), "minute:user:1", now, time.Minute)

	s.sweep(now.Add(2 * time.Minute))
	if len(s.counters) != 0 {
		t.Errorf("counters after sweep = %d, want 0", len(s.counters))
	}
}

func TestKeyFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/chat", nil)
	r.RemoteAddr = "203.0.113.9:4242"

	if got := KeyFromRequest(r, "u-7", "X-Real-IP"); got != "user:u-7" {
		t.Errorf("user id key = %q", got)
	}

	r.Header.Set("X-Real-IP", "198.51.100.2")
	if got := KeyFromRequest(r, "", "X-Real-IP"); got != "ip:198.51.100.2" {
		t.Errorf("trusted header key = %q", got)
	}

	r.Header.Del("X-Real-IP")
	if got := KeyFromRequest(r, "", "X-Real-IP"); got != "ip:203.0.113.9" {
		t.Errorf("remote addr key = %q", got)
	}

	// Spoofable headers are never consulted unless configured as trusted.
	r.Header.Set("X-Forwarded-For", "10.0.0.1")
	if got := KeyFromRequest(r, "", ""); got != "ip:203.0.113.9" {
		t.Errorf("untrusted header key = %q", got)
	}
}
