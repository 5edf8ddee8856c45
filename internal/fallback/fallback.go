// Package fallback dispatches one logical operation across an ordered list of
// providers, trying each strictly in priority order until one succeeds.
package fallback

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"github.com/platewise/platewise/internal/breaker"
	"github.com/platewise/platewise/internal/provider"
	"github.com/platewise/platewise/internal/retry"
)

// Result tags a successful value with the identity of the provider that
// produced it. Exactly one provider's output is ever returned; partial
// results are never merged.
type Result[T any] struct {
	Value      T
	ProviderID string
}

// Candidate is one entry in the ordered provider list. Gate is non-nil for
// premium-tier providers and consulted before each dispatch.
type Candidate struct {
	Provider provider.Provider
	Gate     *breaker.Breaker
}

// Order builds the candidate list: the configured primary first, then the
// remaining providers in their configured order, duplicates removed. The
// result is stable for fixed configuration.
func Order(primary string, providers []provider.Provider) []provider.Provider {
	ordered := make([]provider.Provider, 0, len(providers))
	seen := make(map[string]bool, len(providers))
	for _, p := range providers {
		if p.ID() == primary && !seen[p.ID()] {
			ordered = append(ordered, p)
			seen[p.ID()] = true
		}
	}
	for _, p := range providers {
		if !seen[p.ID()] {
			ordered = append(ordered, p)
			seen[p.ID()] = true
		}
	}
	return ordered
}

// Run tries each candidate through the retry executor and returns the first
// success. A candidate has failed when its call errors (retryable or not),
// returns a zero value, or isSoft flags the value. When every candidate
// fails the last observed error is returned.
//
// One deliberate exception: an invalid_request error is a caller bug and
// would fail identically against every backend, so it aborts the whole loop
// instead of burning the remaining providers.
func Run[T any](ctx context.Context, candidates []Candidate, op func(ctx context.Context, p provider.Provider) (T, error), isSoft func(T) bool) (Result[T], error) {
	var lastErr error
	for _, c := range candidates {
		p := c.Provider
		if c.Gate != nil && !c.Gate.Allow() {
			slog.Debug("provider skipped, circuit open", "provider", p.ID())
			continue
		}

		policy := retry.Policy{
			MaxRetries:     p.RetryBudget(),
			AttemptTimeout: attemptTimeout(ctx),
		}
		v, err := retry.Do(ctx, policy, func(ctx context.Context) (T, error) {
			return op(ctx, p)
		})
		if err == nil && isZero(v) {
			err = &provider.Error{Kind: provider.KindUnknown, Message: "empty response", ProviderID: p.ID()}
		}
		if err == nil && isSoft != nil && isSoft(v) {
			err = &provider.Error{Kind: provider.KindUnknown, Message: "soft failure: response failed validation", ProviderID: p.ID()}
		}

		if err == nil {
			if c.Gate != nil {
				c.Gate.RecordSuccess()
			}
			return Result[T]{Value: v, ProviderID: p.ID()}, nil
		}

		lastErr = err

		// A cancelled caller is not a provider fault; the gate is untouched.
		if errors.Is(err, context.Canceled) {
			break
		}
		if c.Gate != nil {
			c.Gate.RecordFailure()
		}
		var perr *provider.Error
		if errors.As(err, &perr) && perr.Kind == provider.KindInvalidRequest {
			slog.Warn("caller-fault error, aborting fallback chain", "provider", p.ID(), "error", err)
			break
		}
		slog.Info("provider failed, trying next", "provider", p.ID(), "error", err)
	}

	var zero Result[T]
	if lastErr == nil {
		lastErr = &provider.Error{Kind: provider.KindUnknown, Message: "no providers available"}
	}
	return zero, lastErr
}

// attemptTimeout derives a per-attempt budget from the remaining overall
// deadline so a single attempt never outlives the caller.
func attemptTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}

func isZero[T any](v T) bool {
	var zero T
	return reflect.DeepEqual(v, zero)
}
