package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	geminiDefaultModel   = "gemini-2.0-flash"
	geminiDefaultTimeout = 45 * time.Second
)

// Gemini adapts the Google GenAI SDK to the Provider interface.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini provider with the given API key.
func NewGemini(apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: geminiDefaultModel}, nil
}

func (p *Gemini) ID() string { return "gemini" }

// RetryBudget is 2: flash models are cheap and fast enough to retry twice.
func (p *Gemini) RetryBudget() int { return 2 }

func (p *Gemini) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = geminiDefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	contents, err := p.toContents(messages, config)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", p.classify(err)
	}
	text := resp.Text()
	if text == "" {
		return "", &Error{Kind: KindContentFilter, Message: "empty response (possibly blocked)", ProviderID: p.ID()}
	}
	return text, nil
}

// toContents translates neutral messages into genai contents. System messages
// become the system instruction; Gemini has no system role in contents.
func (p *Gemini) toContents(messages []Message, config *genai.GenerateContentConfig) ([]*genai.Content, error) {
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == RoleSystem {
			config.SystemInstruction = genai.NewContentFromText(m.Text(), genai.RoleUser)
			continue
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		var parts []*genai.Part
		for _, part := range m.Parts {
			if part.ImageB64 != "" {
				data, err := base64.StdEncoding.DecodeString(part.ImageB64)
				if err != nil {
					return nil, &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf("decoding image payload: %v", err), ProviderID: p.ID()}
				}
				mime := part.MimeType
				if mime == "" {
					mime = "image/jpeg"
				}
				parts = append(parts, genai.NewPartFromBytes(data, mime))
			} else if part.Text != "" {
				parts = append(parts, genai.NewPartFromText(part.Text))
			}
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents, nil
}

func (p *Gemini) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return FromStatus(p.ID(), apiErr.Code, apiErr.Message, 0)
	}
	return WrapTransport(p.ID(), err)
}
