// Package retry wraps a single provider call with bounded
// exponential-backoff-with-jitter retries.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/platewise/platewise/internal/provider"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 8 * time.Second
)

// Policy controls retry behavior for one logical call.
type Policy struct {
	MaxRetries     int           // additional attempts after the first
	AttemptTimeout time.Duration // per-attempt deadline; 0 = no extra deadline
	BaseDelay      time.Duration
	MaxDelay       time.Duration

	// sleep is swapped in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// WithSleep returns a copy of the policy using the given sleep function.
// Tests use it to observe delays without waiting.
func (p Policy) WithSleep(fn func(ctx context.Context, d time.Duration) error) Policy {
	p.sleep = fn
	return p
}

// Do runs op under the policy. A non-retryable classified error, an exhausted
// budget, or a cancelled parent context stops the loop; the last error is
// returned. A per-attempt timeout never exceeds the remaining parent budget.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = ctxSleep
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, provider.WrapTransport("", err)
		}

		attemptCtx := ctx
		var cancel context.CancelFunc = func() {}
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		v, err := op(attemptCtx)
		cancel()
		if err == nil {
			return v, nil
		}

		// A per-attempt timeout is retryable even though the raw error is a
		// plain deadline expiry; only a dead parent context is terminal.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = &provider.Error{Kind: provider.KindTimeout, Message: "attempt deadline exceeded"}
		}
		lastErr = err

		var perr *provider.Error
		if !errors.As(err, &perr) || !perr.Retryable() || attempt == p.MaxRetries {
			return zero, lastErr
		}

		delay := backoff(base, maxDelay, attempt, perr.RetryAfter)
		slog.Debug("retrying provider call",
			"provider", perr.ProviderID,
			"kind", perr.Kind,
			"attempt", attempt+1,
			"delay", delay,
		)
		if err := sleep(ctx, delay); err != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// backoff computes min(retryAfter ?? base*2^attempt + jitter, maxDelay).
// Provider-supplied hints win over the computed schedule.
func backoff(base, maxDelay time.Duration, attempt int, retryAfter time.Duration) time.Duration {
	d := retryAfter
	if d <= 0 {
		d = base << attempt
		d += time.Duration(rand.Int64N(int64(base)))
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
