package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/platewise/platewise/internal/provider"
)

func noSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	p := Policy{MaxRetries: 3}.WithSleep(noSleep(nil))

	got, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &provider.Error{Kind: provider.KindServerError, Message: "flaky"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	p := Policy{MaxRetries: 5}.WithSleep(noSleep(nil))

	_, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		attempts++
		return "", &provider.Error{Kind: provider.KindAuth, Message: "bad key"}
	})
	if err == nil {
		t.Fatal("want error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	var perr *provider.Error
	if !errors.As(err, &perr) || perr.Kind != provider.KindAuth {
		t.Errorf("err = %v, want auth error", err)
	}
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	attempts := 0
	p := Policy{MaxRetries: 2}.WithSleep(noSleep(nil))

	_, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		attempts++
		return "", &provider.Error{Kind: provider.KindRateLimit, Message: "still limited"}
	})
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (1 + 2 retries)", attempts)
	}
	var perr *provider.Error
	if !errors.As(err, &perr) || perr.Kind != provider.KindRateLimit {
		t.Errorf("err = %v, want the last rate limit error", err)
	}
}

func TestDo_PlainErrorNotRetried(t *testing.T) {
	attempts := 0
	p := Policy{MaxRetries: 3}.WithSleep(noSleep(nil))

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("unclassified")
	})
	if err == nil || attempts != 1 {
		t.Errorf("attempts = %d, err = %v; plain errors should not retry", attempts, err)
	}
}

func TestDo_CanceledParentStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxRetries: 3}.WithSleep(noSleep(nil))
	_, err := Do(ctx, p, func(ctx context.Context) (string, error) {
		t.Error("op should not run under a canceled parent")
		return "", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDo_AttemptTimeoutIsRetryable(t *testing.T) {
	attempts := 0
	p := Policy{MaxRetries: 1, AttemptTimeout: 10 * time.Millisecond}.WithSleep(noSleep(nil))

	got, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q, want %q", got, "recovered")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	maxDelay := 8 * time.Second

	// Provider hint wins over the computed schedule.
	if d := backoff(base, maxDelay, 0, 3*time.Second); d != 3*time.Second {
		t.Errorf("retryAfter hint: delay = %s, want 3s", d)
	}

	// Hint is still capped.
	if d := backoff(base, maxDelay, 0, time.Minute); d != maxDelay {
		t.Errorf("capped hint: delay = %s, want %s", d, maxDelay)
	}

	// Exponential schedule grows within [base*2^n, base*2^n + base).
	for attempt := 0; attempt < 4; attempt++ {
		d := backoff(base, maxDelay, attempt, 0)
		lo := base << attempt
		hi := lo + base
		if d < lo || d >= hi {
			t.Errorf("attempt %d: delay = %s, want in [%s, %s)", attempt, d, lo, hi)
		}
	}

	// Deep attempts saturate at the cap.
	if d := backoff(base, maxDelay, 10, 0); d != maxDelay {
		t.Errorf("deep attempt: delay = %s, want %s", d, maxDelay)
	}
}

func TestDo_ObservedDelaysUseRetryAfter(t *testing.T) {
	var delays []time.Duration
	p := Policy{MaxRetries: 1}.WithSleep(noSleep(&delays))

	_, _ = Do(context.Background(), p, func(ctx context.Context) (string, error) {
		return "", &provider.Error{Kind: provider.KindRateLimit, RetryAfter: 2 * time.Second}
	})
	if len(delays) != 1 || delays[0] != 2*time.Second {
		t.Errorf("delays = %v, want [2s]", delays)
	}
}
