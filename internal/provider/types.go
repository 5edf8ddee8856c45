package provider

import "time"

// Message roles understood by every adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part is one element of a message body: either text or an inline image.
// Exactly one of Text or ImageB64 is set.
type Part struct {
	Text     string
	ImageB64 string
	MimeType string
}

// Message is a provider-neutral chat message. Adapters translate it into
// their backend's wire format; callers never see backend-specific types.
type Message struct {
	Role  string
	Parts []Part
}

// Text returns the concatenated text parts of the message.
func (m Message) Text() string {
	var s string
	for _, p := range m.Parts {
		s += p.Text
	}
	return s
}

// TextMessage builds a plain text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Parts: []Part{{Text: text}}}
}

// ImageMessage builds a user message carrying a prompt plus an inline
// base64-encoded image.
func ImageMessage(text, imageB64, mimeType string) Message {
	return Message{Role: RoleUser, Parts: []Part{
		{Text: text},
		{ImageB64: imageB64, MimeType: mimeType},
	}}
}

// Options control a single chat call.
type Options struct {
	Temperature float64
	MaxTokens   int
	JSONMode    bool
	Timeout     time.Duration
}
