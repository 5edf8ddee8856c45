package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	openAIDefaultModel   = "gpt-4o"
	openAIWhisperModel   = openai.AudioModelWhisper1
	openAIDefaultTimeout = 60 * time.Second
)

// OpenAI adapts the official OpenAI SDK to the Provider interface.
// It is the premium tier: higher quality, higher cost, gated by the
// circuit breaker upstream.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI provider with the given API key.
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openAIDefaultModel,
	}
}

func (p *OpenAI) ID() string { return "openai" }

// RetryBudget is 1: the premium tier is expensive, a failed call moves to
// fallback quickly instead of burning retries.
func (p *OpenAI) RetryBudget() int { return 1 }

func (p *OpenAI) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = openAIDefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: toOpenAIMessages(messages),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", p.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindUnknown, Message: "empty choices in response", ProviderID: p.ID()}
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe implements the optional Transcriber capability via Whisper.
func (p *OpenAI) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, openAIDefaultTimeout)
	defer cancel()

	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openAIWhisperModel,
		File:  openai.File(bytes.NewReader(audio), "audio", mimeType),
	})
	if err != nil {
		return "", p.classify(err)
	}
	return resp.Text, nil
}

// classify maps SDK errors to the shared taxonomy. HTTP status is the only
// input to the mapping; transport failures are handled by WrapTransport.
func (p *OpenAI) classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		retryAfter := retryAfterFromHeader(apierr.Response)
		return FromStatus(p.ID(), apierr.StatusCode, apierr.Message, retryAfter)
	}
	return WrapTransport(p.ID(), err)
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Text()))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Text()))
		default:
			if hasImage(m) {
				parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Parts))
				for _, part := range m.Parts {
					if part.ImageB64 != "" {
						parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL: dataURL(part.MimeType, part.ImageB64),
						}))
					} else if part.Text != "" {
						parts = append(parts, openai.TextContentPart(part.Text))
					}
				}
				out = append(out, openai.UserMessage(parts))
			} else {
				out = append(out, openai.UserMessage(m.Text()))
			}
		}
	}
	return out
}

func hasImage(m Message) bool {
	for _, p := range m.Parts {
		if p.ImageB64 != "" {
			return true
		}
	}
	return false
}

func dataURL(mimeType, b64 string) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, b64)
}
