// Package analysis exposes the high-level AI operations: each call flows
// through rate limiting, response dedup, provider fallback, and (for meal
// operations) nutrition verification before reaching the caller.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/platewise/internal/breaker"
	"github.com/platewise/platewise/internal/cache"
	"github.com/platewise/platewise/internal/fallback"
	"github.com/platewise/platewise/internal/nutrition"
	"github.com/platewise/platewise/internal/provider"
	"github.com/platewise/platewise/internal/ratelimit"
	"github.com/platewise/platewise/internal/storage"
)

// PremiumFeature names the circuit-breaker feature flag for the premium tier.
const PremiumFeature = "premium_provider"

// Deps wires the service. Limiter, Cache, Enricher, and Store are optional;
// a nil value disables that concern.
type Deps struct {
	Providers      []provider.Provider
	Primary        string
	PremiumEnabled bool
	Breaker        *breaker.Breaker
	Limiter        *ratelimit.Limiter
	Cache          *cache.Cache
	Enricher       *nutrition.Enricher
	Store          *storage.Store
}

// Service runs the orchestration for every public operation.
type Service struct {
	candidates   []fallback.Candidate
	transcribers []fallback.Candidate
	limiter      *ratelimit.Limiter
	cache        *cache.Cache
	enricher     *nutrition.Enricher
	store        *storage.Store
}

// NewService builds the ordered candidate list once: primary first, then the
// configured priority order, premium-tier entries gated by the breaker (or
// dropped entirely when the feature flag is off).
func NewService(deps Deps) *Service {
	ordered := fallback.Order(deps.Primary, deps.Providers)

	s := &Service{
		limiter:  deps.Limiter,
		cache:    deps.Cache,
		enricher: deps.Enricher,
		store:    deps.Store,
	}
	for _, p := range ordered {
		var gate *breaker.Breaker
		if provider.Premium(p.ID()) {
			if !deps.PremiumEnabled {
				slog.Info("premium provider tier disabled by config", "provider", p.ID())
				continue
			}
			gate = deps.Breaker
		}
		c := fallback.Candidate{Provider: p, Gate: gate}
		s.candidates = append(s.candidates, c)
		if _, ok := p.(provider.Transcriber); ok {
			s.transcribers = append(s.transcribers, c)
		}
	}
	return s
}

// operation describes one dispatch through the pipeline.
type operation struct {
	name      string
	userKey   string
	input     []byte // hashed into the dedup key
	timeout   time.Duration
	cacheable bool
	isSoft    func([]byte) bool
	call      func(ctx context.Context, p provider.Provider) ([]byte, error)

	// restricted operations (transcription) dispatch only to candidates,
	// even when the list is empty; otherwise all configured providers run.
	restricted bool
	candidates []fallback.Candidate
}

// run is the shared control flow: rate limit, cache probe, fallback dispatch,
// cache fill, history record, envelope.
func (s *Service) run(ctx context.Context, op operation) Response {
	start := time.Now()
	reqID := uuid.NewString()
	log := slog.With("request_id", reqID, "operation", op.name)

	if s.limiter != nil {
		if d := s.limiter.Check(ctx, op.userKey); !d.Allowed {
			log.Info("request rate limited", "decision", d.String())
			return rateLimited(reqID, d, start)
		}
	}

	key := cache.Key(op.userKey+"|"+op.name, op.input)
	if op.cacheable && s.cache != nil {
		if e, ok := s.cache.Get(ctx, key); ok {
			log.Debug("cache hit", "provider", e.ProviderID)
			resp := success(reqID, e.Value, e.ProviderID, start)
			resp.Cached = true
			return resp
		}
	}

	ctx, cancel := context.WithTimeout(ctx, op.timeout)
	defer cancel()

	cands := s.candidates
	if op.restricted {
		cands = op.candidates
	}
	res, err := fallback.Run(ctx, cands, op.call, op.isSoft)
	if err != nil {
		log.Warn("all providers failed", "error", err)
		return failure(reqID, err, start)
	}

	if op.cacheable && s.cache != nil {
		s.cache.Put(ctx, key, res.ProviderID, res.Value)
	}
	resp := success(reqID, res.Value, res.ProviderID, start)
	s.record(op, resp)
	log.Info("analysis complete", "provider", res.ProviderID, "duration_ms", resp.DurationMs)
	return resp
}

func (s *Service) record(op operation, resp Response) {
	if s.store == nil {
		return
	}
	err := s.store.SaveAnalysis(storage.AnalysisRecord{
		ID:         resp.RequestID,
		CreatedAt:  time.Now(),
		UserKey:    op.userKey,
		Operation:  op.name,
		ProviderID: resp.ProviderID,
		DurationMs: resp.DurationMs,
		Result:     string(resp.Data),
	})
	if err != nil {
		slog.Warn("saving analysis history failed", "error", err)
	}
}

// History returns recent analyses for the user.
func (s *Service) History(userKey, op string, limit int) ([]storage.AnalysisRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.RecentAnalyses(userKey, op, limit)
}
