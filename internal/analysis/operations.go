package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/platewise/platewise/internal/nutrition"
	"github.com/platewise/platewise/internal/provider"
)

// Per-operation deadlines, scaled by cost: vision and planning calls get the
// larger budget.
const (
	chatTimeout       = 30 * time.Second
	textMealTimeout   = 30 * time.Second
	photoTimeout      = 60 * time.Second
	workoutTimeout    = 45 * time.Second
	weeklyTimeout     = 45 * time.Second
	planWeekTimeout   = 60 * time.Second
	transcribeTimeout = 60 * time.Second
)

// Chat relays a free-form conversation to the first healthy provider.
// Conversations are not deduplicated.
func (s *Service) Chat(ctx context.Context, userKey string, messages []provider.Message) Response {
	return s.run(ctx, operation{
		name:    "chat",
		userKey: userKey,
		timeout: chatTimeout,
		isSoft:  sentinelError,
		call: func(ctx context.Context, p provider.Provider) ([]byte, error) {
			text, err := p.Chat(ctx, messages, provider.Options{Temperature: 0.7, MaxTokens: 1000})
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]string{"reply": text})
		},
	})
}

// AnalyzeTextMeal turns a meal description into reconciled per-food macros.
// Output that fails the shape check is a soft failure handled by fallback.
func (s *Service) AnalyzeTextMeal(ctx context.Context, userKey, description string) Response {
	return s.run(ctx, operation{
		name:      "analyze_text_meal",
		userKey:   userKey,
		input:     []byte(description),
		timeout:   textMealTimeout,
		cacheable: true,
		call: func(ctx context.Context, p provider.Provider) ([]byte, error) {
			raw, err := p.Chat(ctx, textMealMessages(description), provider.Options{
				Temperature: 0.2, MaxTokens: 1200, JSONMode: true,
			})
			if err != nil {
				return nil, err
			}
			analysis := nutrition.Reconcile(extractJSON(raw))
			if analysis == nil {
				return nil, nil // malformed payload: soft failure, try next provider
			}
			return json.Marshal(analysis)
		},
	})
}

// identifiedFoods is the expected shape of the vision pass.
type identifiedFoods struct {
	Foods []nutrition.IdentifiedFood `json:"foods"`
}

// AnalyzeMealPhoto runs the two-phase pipeline: the vision model only
// identifies foods and rough portions; quantities are then resolved
// deterministically by the enrichment pipeline.
func (s *Service) AnalyzeMealPhoto(ctx context.Context, userKey, imageB64, mimeType, note string) Response {
	return s.run(ctx, operation{
		name:      "analyze_meal_photo",
		userKey:   userKey,
		input:     []byte(imageB64),
		timeout:   photoTimeout,
		cacheable: true,
		call: func(ctx context.Context, p provider.Provider) ([]byte, error) {
			raw, err := p.Chat(ctx, mealPhotoMessages(imageB64, mimeType, note), provider.Options{
				Temperature: 0.2, MaxTokens: 1000, JSONMode: true,
			})
			if err != nil {
				return nil, err
			}
			var identified identifiedFoods
			if err := json.Unmarshal(extractJSON(raw), &identified); err != nil || len(identified.Foods) == 0 {
				return nil, nil
			}
			meal := s.enrichOrPassthrough(ctx, identified.Foods)
			return json.Marshal(meal)
		},
	})
}

// enrichOrPassthrough runs the nutrition pipeline when configured; without it
// the identified foods are returned with estimate-only macros.
func (s *Service) enrichOrPassthrough(ctx context.Context, foods []nutrition.IdentifiedFood) nutrition.EnrichedMeal {
	if s.enricher != nil {
		return s.enricher.Enrich(ctx, foods)
	}
	return nutrition.NewEnricher(nil, 0).Enrich(ctx, foods)
}

// AnalyzeBodyPhoto returns a composition assessment for a progress photo.
func (s *Service) AnalyzeBodyPhoto(ctx context.Context, userKey, imageB64, mimeType string) Response {
	return s.run(ctx, operation{
		name:      "analyze_body_photo",
		userKey:   userKey,
		input:     []byte(imageB64),
		timeout:   photoTimeout,
		cacheable: true,
		isSoft:    sentinelError,
		call: func(ctx context.Context, p provider.Provider) ([]byte, error) {
			text, err := p.Chat(ctx, bodyPhotoMessages(imageB64, mimeType), provider.Options{
				Temperature: 0.4, MaxTokens: 800,
			})
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]string{"assessment": text})
		},
	})
}

// AnalyzeProgress summarizes trends over the user's logged history.
func (s *Service) AnalyzeProgress(ctx context.Context, userKey, summary string) Response {
	return s.run(ctx, operation{
		name:      "analyze_progress",
		userKey:   userKey,
		input:     []byte(summary),
		timeout:   weeklyTimeout,
		cacheable: true,
		isSoft:    sentinelError,
		call: func(ctx context.Context, p provider.Provider) ([]byte, error) {
			text, err := p.Chat(ctx, progressMessages(summary), provider.Options{
				Temperature: 0.5, MaxTokens: 900,
			})
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]string{"analysis": text})
		},
	})
}

// GenerateWorkout produces a structured workout for the given profile.
// Invalid JSON from the model is a soft failure.
func (s *Service) GenerateWorkout(ctx context.Context, userKey, profile string) Response {
	return s.run(ctx, operation{
		name:      "generate_workout",
		userKey:   userKey,
		input:     []byte(profile),
		timeout:   workoutTimeout,
		cacheable: true,
		call:      s.jsonCall(workoutMessages(profile), 1500),
	})
}

// AnalyzeWeeklyNutrition reviews a week of logged meals.
func (s *Service) AnalyzeWeeklyNutrition(ctx context.Context, userKey, entries string) Response {
	return s.run(ctx, operation{
		name:      "analyze_weekly_nutrition",
		userKey:   userKey,
		input:     []byte(entries),
		timeout:   weeklyTimeout,
		cacheable: true,
		call:      s.jsonCall(weeklyNutritionMessages(entries), 1200),
	})
}

// PlanWeek produces a seven-day meal and training plan.
func (s *Service) PlanWeek(ctx context.Context, userKey, goals string) Response {
	return s.run(ctx, operation{
		name:      "plan_week",
		userKey:   userKey,
		input:     []byte(goals),
		timeout:   planWeekTimeout,
		cacheable: true,
		call:      s.jsonCall(planWeekMessages(goals), 2000),
	})
}

// TranscribeAudio converts an audio clip to text. Only providers with the
// Transcriber capability participate.
func (s *Service) TranscribeAudio(ctx context.Context, userKey string, audio []byte, mimeType string) Response {
	return s.run(ctx, operation{
		name:       "transcribe_audio",
		userKey:    userKey,
		input:      audio,
		timeout:    transcribeTimeout,
		restricted: true,
		candidates: s.transcribers,
		call: func(ctx context.Context, p provider.Provider) ([]byte, error) {
			t, ok := p.(provider.Transcriber)
			if !ok {
				return nil, &provider.Error{Kind: provider.KindUnknown, Message: "provider cannot transcribe audio", ProviderID: p.ID()}
			}
			text, err := t.Transcribe(ctx, audio, mimeType)
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]string{"text": text})
		},
	})
}

// jsonCall builds a call that requires well-formed JSON output; anything else
// is a soft failure suitable for fallback.
func (s *Service) jsonCall(messages []provider.Message, maxTokens int) func(ctx context.Context, p provider.Provider) ([]byte, error) {
	return func(ctx context.Context, p provider.Provider) ([]byte, error) {
		raw, err := p.Chat(ctx, messages, provider.Options{
			Temperature: 0.4, MaxTokens: maxTokens, JSONMode: true,
		})
		if err != nil {
			return nil, err
		}
		payload := extractJSON(raw)
		if !json.Valid(payload) {
			return nil, nil
		}
		return payload, nil
	}
}

// extractJSON trims markdown fences and surrounding prose that some models
// wrap around JSON payloads.
func extractJSON(raw string) []byte {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "{"); i >= 0 {
		if j := strings.LastIndex(raw, "}"); j > i {
			return []byte(raw[i : j+1])
		}
	}
	return []byte(raw)
}

// sentinelError flags legacy "Error: ..." string payloads as soft failures.
func sentinelError(b []byte) bool {
	trimmed := bytes.TrimSpace(b)
	trimmed = bytes.TrimPrefix(trimmed, []byte(`{"reply":"`))
	trimmed = bytes.TrimPrefix(trimmed, []byte(`{"assessment":"`))
	trimmed = bytes.TrimPrefix(trimmed, []byte(`{"analysis":"`))
	return bytes.HasPrefix(trimmed, []byte("Error:"))
}
