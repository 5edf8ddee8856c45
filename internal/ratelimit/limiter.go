// Package ratelimit enforces per-identity request caps over two independent
// windows (per-minute and per-day), backed by an atomic counter store.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Window is one counting window: cap Limit events per Duration.
type Window struct {
	Name     string
	Duration time.Duration
	Limit    int
}

// Decision is the structured outcome of a limit check. Denials carry
// retry-after guidance; the cause is never hidden behind an opaque error.
type Decision struct {
	Allowed    bool
	Window     string        // which window denied, "" when allowed
	RetryAfter time.Duration // how long until the denying window resets
}

// CounterStore is the atomic increment-with-window-reset primitive. Incr
// bumps the counter for key, resetting it first when the stored window has
// elapsed, and returns the post-increment count and the window start.
type CounterStore interface {
	Incr(ctx context.Context, key string, now time.Time, window time.Duration) (count int, windowStart time.Time, err error)
}

// Limiter checks a key against every configured window.
type Limiter struct {
	store   CounterStore
	windows []Window
	now     func() time.Time
}

// New creates a Limiter. The clock is injected for tests; pass nil for
// time.Now.
func New(store CounterStore, windows []Window, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, windows: windows, now: now}
}

// Windows builds the standard minute/day window pair from configured caps.
func Windows(perMinute, perDay int) []Window {
	return []Window{
		{Name: "minute", Duration: time.Minute, Limit: perMinute},
		{Name: "day", Duration: 24 * time.Hour, Limit: perDay},
	}
}

// Check increments every window for the key and returns the first denial, if
// any. A store failure fails open with a warning: losing rate limiting
// briefly beats refusing all traffic.
func (l *Limiter) Check(ctx context.Context, key string) Decision {
	now := l.now()
	for _, w := range l.windows {
		if w.Limit <= 0 {
			continue
		}
		count, start, err := l.store.Incr(ctx, w.Name+":"+key, now, w.Duration)
		if err != nil {
			slog.Warn("rate limit store unavailable, allowing request", "window", w.Name, "error", err)
			continue
		}
		if count > w.Limit {
			retryAfter := start.Add(w.Duration).Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
			return Decision{Allowed: false, Window: w.Name, RetryAfter: retryAfter}
		}
	}
	return Decision{Allowed: true}
}

// KeyFromRequest resolves the identity key: the authenticated user id when
// present, else the client address from the trusted proxy header, else the
// connection's remote address. Client-controlled headers are never consulted.
func KeyFromRequest(r *http.Request, userID, trustedHeader string) string {
	if userID != "" {
		return "user:" + userID
	}
	if trustedHeader != "" {
		if addr := r.Header.Get(trustedHeader); addr != "" {
			return "ip:" + addr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

func (d Decision) String() string {
	if d.Allowed {
		return "allowed"
	}
	return fmt.Sprintf("denied (%s window, retry in %s)", d.Window, d.RetryAfter)
}
