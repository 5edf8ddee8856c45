// Package breaker implements a circuit breaker gating the premium provider
// tier. The baseline tier is never gated, so an open circuit degrades
// ordering, never availability.
package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// State is the breaker's position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

const (
	DefaultFailureThreshold = 3
	DefaultRecoveryTime     = 60 * time.Second
)

// Breaker tracks consecutive failures for one feature. State transitions are
// the only mutation path; reset happens only via process restart or an
// explicit Reset call, never business logic.
type Breaker struct {
	mu          sync.Mutex
	name        string
	state       State
	failures    int
	lastFailure time.Time
	probing     bool

	threshold int
	recovery  time.Duration
	now       func() time.Time
}

// New creates a Breaker. The clock is injected so tests control time;
// pass nil for time.Now.
func New(name string, threshold int, recovery time.Duration, now func() time.Time) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if recovery <= 0 {
		recovery = DefaultRecoveryTime
	}
	if now == nil {
		now = time.Now
	}
	return &Breaker{name: name, threshold: threshold, recovery: recovery, now: now}
}

// Allow reports whether a call may proceed. When the recovery window has
// elapsed on an open circuit, the breaker half-opens and admits exactly one
// probe; concurrent callers are refused until the probe reports back.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.lastFailure) >= b.recovery {
			b.state = HalfOpen
			b.probing = true
			slog.Info("circuit half-open, probing", "feature", b.name)
			return true
		}
		return false
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// RecordSuccess closes the circuit and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Closed {
		slog.Info("circuit closed", "feature", b.name)
	}
	b.state = Closed
	b.failures = 0
	b.probing = false
}

// RecordFailure counts a consecutive failure; at the threshold (or on a
// failed half-open probe) the circuit opens.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
	b.probing = false
	if b.state == HalfOpen || b.failures >= b.threshold {
		if b.state != Open {
			slog.Warn("circuit opened", "feature", b.name, "failures", b.failures)
		}
		b.state = Open
	}
}

// Reset forces the circuit closed. Admin action only.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probing = false
	slog.Info("circuit reset", "feature", b.name)
}

// CurrentState returns the state for status reporting.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Process-global registry, one breaker per feature name. Lifecycle is the
// process lifetime; under multiple instances each process keeps its own view.
var (
	regMu    sync.Mutex
	registry = map[string]*Breaker{}
)

// For returns the process-wide breaker for the feature, creating it with the
// given settings on first use.
func For(name string, threshold int, recovery time.Duration) *Breaker {
	regMu.Lock()
	defer regMu.Unlock()
	if b, ok := registry[name]; ok {
		return b
	}
	b := New(name, threshold, recovery, nil)
	registry[name] = b
	return b
}
