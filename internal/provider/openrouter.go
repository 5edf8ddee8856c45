package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	openRouterBaseURL        = "https://openrouter.ai/api/v1"
	openRouterDefaultModel   = "meta-llama/llama-3.3-70b-instruct"
	openRouterDefaultTimeout = 60 * time.Second
)

// OpenRouter is the guaranteed-available baseline tier, talking the
// OpenAI-compatible wire format over plain HTTP.
type OpenRouter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	referer    string
	title      string
}

// NewOpenRouter creates an OpenRouter provider with the given API key.
func NewOpenRouter(apiKey string) *OpenRouter {
	return &OpenRouter{
		apiKey:  apiKey,
		baseURL: openRouterBaseURL,
		model:   openRouterDefaultModel,
		httpClient: &http.Client{
			Timeout: 0, // per-call deadlines come from the request context
		},
		referer: "https://github.com/platewise/platewise",
		title:   "platewise",
	}
}

// NewOpenRouterWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewOpenRouterWithBaseURL(apiKey, baseURL string) *OpenRouter {
	c := NewOpenRouter(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (p *OpenRouter) ID() string { return "openrouter" }

// RetryBudget is 3: the baseline tier is cheap, retries are worth it.
func (p *OpenRouter) RetryBudget() int { return 3 }

type orMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type orContentPart struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL *orImageURL `json:"image_url,omitempty"`
}

type orImageURL struct {
	URL string `json:"url"`
}

type orChatRequest struct {
	Model          string      `json:"model"`
	Messages       []orMessage `json:"messages"`
	Temperature    float64     `json:"temperature,omitempty"`
	MaxTokens      int         `json:"max_tokens,omitempty"`
	ResponseFormat *orFormat   `json:"response_format,omitempty"`
}

type orFormat struct {
	Type string `json:"type"`
}

type orChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenRouter) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = openRouterDefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cr := orChatRequest{
		Model:       p.model,
		Messages:    p.toWire(messages),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONMode {
		cr.ResponseFormat = &orFormat{Type: "json_object"}
	}

	body, err := json.Marshal(cr)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("HTTP-Referer", p.referer)
	req.Header.Set("X-Title", p.title)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", WrapTransport(p.ID(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", FromStatus(p.ID(), resp.StatusCode, string(excerpt), retryAfterFromHeader(resp))
	}

	var result orChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &Error{Kind: KindUnknown, Message: fmt.Sprintf("decoding chat response: %v", err), ProviderID: p.ID()}
	}
	if len(result.Choices) == 0 {
		return "", &Error{Kind: KindUnknown, Message: "empty choices in response", ProviderID: p.ID()}
	}
	return result.Choices[0].Message.Content, nil
}

func (p *OpenRouter) toWire(messages []Message) []orMessage {
	out := make([]orMessage, 0, len(messages))
	for _, m := range messages {
		if !hasImage(m) {
			out = append(out, orMessage{Role: m.Role, Content: m.Text()})
			continue
		}
		var parts []orContentPart
		for _, part := range m.Parts {
			if part.ImageB64 != "" {
				parts = append(parts, orContentPart{
					Type:     "image_url",
					ImageURL: &orImageURL{URL: dataURL(part.MimeType, part.ImageB64)},
				})
			} else if part.Text != "" {
				parts = append(parts, orContentPart{Type: "text", Text: part.Text})
			}
		}
		out = append(out, orMessage{Role: m.Role, Content: parts})
	}
	return out
}

// retryAfterFromHeader parses a Retry-After header (seconds form) from a
// response, returning zero when absent or unparsable.
func retryAfterFromHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
