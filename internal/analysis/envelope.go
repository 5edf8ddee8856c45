package analysis

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/platewise/platewise/internal/provider"
	"github.com/platewise/platewise/internal/ratelimit"
)

// Response is the envelope every public operation returns. Internal errors
// are always mapped into it; nothing propagates past this boundary.
type Response struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	ProviderID string          `json:"providerId,omitempty"`
	DurationMs int64           `json:"durationMs"`
	RequestID  string          `json:"requestId"`
	Cached     bool            `json:"cached,omitempty"`
	Error      *ErrorInfo      `json:"error,omitempty"`
}

// ErrorInfo is the caller-facing error shape.
type ErrorInfo struct {
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	Retryable    bool   `json:"retryable"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
}

func success(reqID string, data []byte, providerID string, start time.Time) Response {
	return Response{
		Success:    true,
		Data:       data,
		ProviderID: providerID,
		DurationMs: time.Since(start).Milliseconds(),
		RequestID:  reqID,
	}
}

func failure(reqID string, err error, start time.Time) Response {
	info := &ErrorInfo{Kind: string(provider.KindUnknown), Message: err.Error()}
	var perr *provider.Error
	if errors.As(err, &perr) {
		info.Kind = string(perr.Kind)
		info.Message = perr.Message
		info.Retryable = perr.Retryable()
		info.RetryAfterMs = perr.RetryAfter.Milliseconds()
	}
	return Response{
		Success:    false,
		DurationMs: time.Since(start).Milliseconds(),
		RequestID:  reqID,
		Error:      info,
	}
}

func rateLimited(reqID string, d ratelimit.Decision, start time.Time) Response {
	return Response{
		Success:    false,
		DurationMs: time.Since(start).Milliseconds(),
		RequestID:  reqID,
		Error: &ErrorInfo{
			Kind:         string(provider.KindRateLimit),
			Message:      "rate limit exceeded (" + d.Window + " window)",
			Retryable:    true,
			RetryAfterMs: d.RetryAfter.Milliseconds(),
		},
	}
}
