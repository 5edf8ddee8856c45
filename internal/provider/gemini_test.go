package provider

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiToContents(t *testing.T) {
	g := &Gemini{model: geminiDefaultModel}
	config := &genai.GenerateContentConfig{}

	contents, err := g.toContents([]Message{
		TextMessage(RoleSystem, "be terse"),
		TextMessage(RoleUser, "hello"),
		TextMessage(RoleAssistant, "hi"),
	}, config)
	if err != nil {
		t.Fatalf("toContents: %v", err)
	}

	// The system message moves into the instruction, not the contents.
	if config.SystemInstruction == nil {
		t.Fatal("system message should become the system instruction")
	}
	if len(contents) != 2 {
		t.Fatalf("contents = %d, want 2", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("contents[0].Role = %q, want user", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("contents[1].Role = %q, want model", contents[1].Role)
	}
}

func TestGeminiToContents_ImagePart(t *testing.T) {
	g := &Gemini{model: geminiDefaultModel}
	config := &genai.GenerateContentConfig{}

	contents, err := g.toContents([]Message{
		ImageMessage("what is this", "aGVsbG8=", "image/png"),
	}, config)
	if err != nil {
		t.Fatalf("toContents: %v", err)
	}
	if len(contents) != 1 || len(contents[0].Parts) != 2 {
		t.Fatalf("contents = %+v, want one content with two parts", contents)
	}
	img := contents[0].Parts[1]
	if img.InlineData == nil || img.InlineData.MIMEType != "image/png" {
		t.Errorf("image part = %+v, want inline image/png data", img)
	}
}

func TestGeminiToContents_BadImage(t *testing.T) {
	g := &Gemini{model: geminiDefaultModel}

	_, err := g.toContents([]Message{
		ImageMessage("caption", "not base64!!!", "image/png"),
	}, &genai.GenerateContentConfig{})
	if err == nil {
		t.Fatal("want error for undecodable image payload")
	}
	perr, ok := err.(*Error)
	if !ok || perr.Kind != KindInvalidRequest {
		t.Errorf("err = %v, want invalid_request", err)
	}
}
