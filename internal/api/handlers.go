// Package api is the thin HTTP boundary over the analysis service. Handlers
// only decode payloads, resolve identity, and translate envelopes to status
// codes; all orchestration happens below.
package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/platewise/platewise/internal/analysis"
	"github.com/platewise/platewise/internal/provider"
	"github.com/platewise/platewise/internal/ratelimit"
)

const (
	maxRequestBodySize = 1 << 20  // 1MB for text payloads
	maxMediaBodySize   = 10 << 20 // 10MB for photo/audio payloads
)

// Deps holds the handler dependencies.
type Deps struct {
	Service         *analysis.Service
	Token           string
	TrustedIPHeader string
}

// NewHandler returns the platewise REST API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/v1/chat", handleChat(deps))
		r.Post("/v1/meals/text", handleTextMeal(deps))
		r.Post("/v1/meals/photo", handleMealPhoto(deps))
		r.Post("/v1/photos/body", handleBodyPhoto(deps))
		r.Post("/v1/progress", handleProgress(deps))
		r.Post("/v1/workouts", handleWorkout(deps))
		r.Post("/v1/nutrition/weekly", handleWeeklyNutrition(deps))
		r.Post("/v1/plans/week", handlePlanWeek(deps))
		r.Post("/v1/transcribe", handleTranscribe(deps))
		r.Get("/v1/analyses", handleAnalyses(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// userKey resolves the rate-limit/cache identity for the request.
func (d Deps) userKey(r *http.Request) string {
	return ratelimit.KeyFromRequest(r, r.Header.Get("X-User-ID"), d.TrustedIPHeader)
}

type chatRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decode(w, r, maxRequestBodySize, &req) {
			return
		}
		if len(req.Messages) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "messages is required and must not be empty")
			return
		}
		messages := make([]provider.Message, len(req.Messages))
		for i, m := range req.Messages {
			messages[i] = provider.TextMessage(m.Role, m.Content)
		}
		writeEnvelope(w, deps.Service.Chat(r.Context(), deps.userKey(r), messages))
	}
}

func handleTextMeal(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Description string `json:"description"`
		}
		if !decode(w, r, maxRequestBodySize, &req) {
			return
		}
		if req.Description == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "description is required")
			return
		}
		writeEnvelope(w, deps.Service.AnalyzeTextMeal(r.Context(), deps.userKey(r), req.Description))
	}
}

type photoRequest struct {
	Image    string `json:"image"` // base64
	MimeType string `json:"mime_type"`
	Note     string `json:"note"`
}

func (p photoRequest) valid() error {
	if p.Image == "" {
		return fmt.Errorf("image is required")
	}
	if _, err := base64.StdEncoding.DecodeString(p.Image); err != nil {
		return fmt.Errorf("image must be valid base64: %w", err)
	}
	return nil
}

func handleMealPhoto(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req photoRequest
		if !decode(w, r, maxMediaBodySize, &req) {
			return
		}
		if err := req.valid(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeEnvelope(w, deps.Service.AnalyzeMealPhoto(r.Context(), deps.userKey(r), req.Image, req.MimeType, req.Note))
	}
}

func handleBodyPhoto(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req photoRequest
		if !decode(w, r, maxMediaBodySize, &req) {
			return
		}
		if err := req.valid(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeEnvelope(w, deps.Service.AnalyzeBodyPhoto(r.Context(), deps.userKey(r), req.Image, req.MimeType))
	}
}

func handleProgress(deps Deps) http.HandlerFunc {
	return textHandler(deps, "summary", func(deps Deps, r *http.Request, text string) analysis.Response {
		return deps.Service.AnalyzeProgress(r.Context(), deps.userKey(r), text)
	})
}

func handleWorkout(deps Deps) http.HandlerFunc {
	return textHandler(deps, "profile", func(deps Deps, r *http.Request, text string) analysis.Response {
		return deps.Service.GenerateWorkout(r.Context(), deps.userKey(r), text)
	})
}

func handleWeeklyNutrition(deps Deps) http.HandlerFunc {
	return textHandler(deps, "entries", func(deps Deps, r *http.Request, text string) analysis.Response {
		return deps.Service.AnalyzeWeeklyNutrition(r.Context(), deps.userKey(r), text)
	})
}

func handlePlanWeek(deps Deps) http.HandlerFunc {
	return textHandler(deps, "goals", func(deps Deps, r *http.Request, text string) analysis.Response {
		return deps.Service.PlanWeek(r.Context(), deps.userKey(r), text)
	})
}

// textHandler builds a handler for operations taking a single text field.
func textHandler(deps Deps, field string, call func(Deps, *http.Request, string) analysis.Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if !decode(w, r, maxRequestBodySize, &req) {
			return
		}
		text := req[field]
		if text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s is required", field)
			return
		}
		writeEnvelope(w, call(deps, r, text))
	}
}

func handleTranscribe(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Audio    string `json:"audio"` // base64
			MimeType string `json:"mime_type"`
		}
		if !decode(w, r, maxMediaBodySize, &req) {
			return
		}
		audio, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil || len(audio) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "audio must be non-empty base64")
			return
		}
		writeEnvelope(w, deps.Service.TranscribeAudio(r.Context(), deps.userKey(r), audio, req.MimeType))
	}
}

func handleAnalyses(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records, err := deps.Service.History(deps.userKey(r), r.URL.Query().Get("operation"), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing analyses: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if records == nil {
			w.Write([]byte("[]"))
			return
		}
		json.NewEncoder(w).Encode(records)
	}
}

func decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

// writeEnvelope maps an analysis envelope to a status code. The envelope
// itself is always the body, so callers see the structured error either way.
func writeEnvelope(w http.ResponseWriter, resp analysis.Response) {
	status := http.StatusOK
	if !resp.Success && resp.Error != nil {
		switch provider.Kind(resp.Error.Kind) {
		case provider.KindRateLimit, provider.KindQuotaExceeded:
			status = http.StatusTooManyRequests
			if resp.Error.RetryAfterMs > 0 {
				secs := (resp.Error.RetryAfterMs + 999) / 1000
				w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
			}
		case provider.KindInvalidRequest:
			status = http.StatusBadRequest
		case provider.KindTimeout:
			status = http.StatusGatewayTimeout
		default:
			status = http.StatusBadGateway
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func httpError(w http.ResponseWriter, status int, kind, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]any{
			"kind":    kind,
			"message": fmt.Sprintf(format, args...),
		},
	})
}
