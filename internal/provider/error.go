package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind classifies a provider failure. It is the single source of truth for
// retry and fallback decisions; control flow never string-matches messages.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindTimeout        Kind = "timeout"
	KindRateLimit      Kind = "rate_limit"
	KindAuth           Kind = "auth"
	KindInvalidRequest Kind = "invalid_request"
	KindServerError    Kind = "server_error"
	KindContentFilter  Kind = "content_filter"
	KindQuotaExceeded  Kind = "quota_exceeded"
	KindUnknown        Kind = "unknown"
)

// Error is a classified provider failure.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // provider-supplied hint; zero if none
	ProviderID string
}

func (e *Error) Error() string {
	if e.ProviderID != "" {
		return fmt.Sprintf("%s: %s: %s", e.ProviderID, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether retrying the same provider can succeed.
// Derived solely from Kind, never from message contents.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimit, KindServerError:
		return true
	default:
		return false
	}
}

// KindFromStatus maps an HTTP status code to a Kind. The mapping is total:
// every status maps to exactly one Kind, defaulting to unknown.
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusPaymentRequired:
		return KindQuotaExceeded
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusUnprocessableEntity:
		return KindContentFilter
	case status >= 400 && status < 500:
		return KindInvalidRequest
	case status >= 500:
		return KindServerError
	default:
		return KindUnknown
	}
}

// FromStatus builds a classified Error from an HTTP status and body excerpt.
func FromStatus(providerID string, status int, message string, retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindFromStatus(status),
		Message:    fmt.Sprintf("HTTP %d: %s", status, message),
		RetryAfter: retryAfter,
		ProviderID: providerID,
	}
}

// WrapTransport classifies transport-level failures (no HTTP status available).
// Context deadline expiry becomes a retryable timeout; cancellation is passed
// through unchanged so callers can distinguish caller-initiated aborts.
func WrapTransport(providerID string, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	kind := KindNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Message: err.Error(), ProviderID: providerID}
}
