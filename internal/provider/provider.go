package provider

import (
	"context"
	"fmt"
)

// Provider abstracts an interchangeable AI backend. Consumers depend on this
// interface instead of a concrete SDK client; the factory below is the only
// place new variants are added.
type Provider interface {
	// ID returns the stable configuration name of the backend.
	ID() string

	// Chat sends the messages and returns the assistant's raw text response,
	// or a classified *Error.
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)

	// RetryBudget returns how many retries a single call to this backend is
	// worth. Cheaper, faster backends retry more.
	RetryBudget() int
}

// Transcriber is an optional capability: audio to text. Asserted at runtime;
// backends without it are skipped for transcription requests.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Credentials holds per-backend API keys resolved at process start.
type Credentials struct {
	OpenAIKey     string
	GeminiKey     string
	OpenRouterKey string
}

// New maps a configuration string to a concrete backend. The set of variants
// is closed; unknown names are a configuration error.
func New(name string, creds Credentials) (Provider, error) {
	switch name {
	case "openai":
		if creds.OpenAIKey == "" {
			return nil, fmt.Errorf("provider %q: missing API key", name)
		}
		return NewOpenAI(creds.OpenAIKey), nil
	case "gemini":
		if creds.GeminiKey == "" {
			return nil, fmt.Errorf("provider %q: missing API key", name)
		}
		return NewGemini(creds.GeminiKey)
	case "openrouter":
		if creds.OpenRouterKey == "" {
			return nil, fmt.Errorf("provider %q: missing API key", name)
		}
		return NewOpenRouter(creds.OpenRouterKey), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// Premium reports whether the named backend belongs to the higher-cost tier
// gated by the circuit breaker. The baseline tier is always eligible.
func Premium(name string) bool {
	return name == "openai"
}
