package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/platewise/platewise/internal/analysis"
	"github.com/platewise/platewise/internal/provider"
	"github.com/platewise/platewise/internal/ratelimit"
)

type fakeProvider struct {
	id    string
	reply string
	err   error
}

func (f *fakeProvider) ID() string       { return f.id }
func (f *fakeProvider) RetryBudget() int { return 0 }

func (f *fakeProvider) Chat(ctx context.Context, messages []provider.Message, opts provider.Options) (string, error) {
	return f.reply, f.err
}

func newTestHandler(t *testing.T, p provider.Provider, limiter *ratelimit.Limiter) http.Handler {
	t.Helper()
	service := analysis.NewService(analysis.Deps{
		Providers: []provider.Provider{p},
		Primary:   p.ID(),
		Limiter:   limiter,
	})
	return NewHandler(Deps{Service: service, Token: "test-token", TrustedIPHeader: "X-Real-IP"})
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth_NoAuth(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{id: "openrouter", reply: "hi"}, nil)
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, health must not require auth", w.Code)
	}
}

func TestAuth_Required(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{id: "openrouter", reply: "hi"}, nil)

	req := httptest.NewRequest("POST", "/v1/chat", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without a token", w.Code)
	}

	req = httptest.NewRequest("POST", "/v1/chat", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer wrong-token")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 with a wrong token", w.Code)
	}
}

func TestChat_Envelope(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{id: "openrouter", reply: "hello there"}, nil)
	w := doJSON(t, h, "POST", "/v1/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var resp analysis.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.ProviderID != "openrouter" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestChat_EmptyMessagesRejected(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{id: "openrouter", reply: "hi"}, nil)
	w := doJSON(t, h, "POST", "/v1/chat", `{"messages":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInvalidBody(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{id: "openrouter", reply: "hi"}, nil)
	w := doJSON(t, h, "POST", "/v1/meals/text", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Success || body.Error.Kind != "invalid_request_error" {
		t.Errorf("body = %+v", body)
	}
}

func TestMealPhoto_BadBase64Rejected(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{id: "openrouter", reply: "hi"}, nil)
	w := doJSON(t, h, "POST", "/v1/meals/photo", `{"image":"not base64!!!"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTranscribe_BadAudioRejected(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{id: "openrouter", reply: "hi"}, nil)
	w := doJSON(t, h, "POST", "/v1/transcribe", `{"audio":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRateLimit_429WithRetryAfter(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Windows(1, 100), nil)
	h := newTestHandler(t, &fakeProvider{id: "openrouter", reply: "hi"}, limiter)

	body := `{"messages":[{"role":"user","content":"hi"}]}`
	if w := doJSON(t, h, "POST", "/v1/chat", body); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}
	w := doJSON(t, h, "POST", "/v1/chat", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry a Retry-After header")
	}
	var resp analysis.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error.Kind != "rate_limit" || !resp.Error.Retryable {
		t.Errorf("resp = %+v", resp)
	}
}

func TestProviderFailureStatusMapping(t *testing.T) {
	cases := []struct {
		kind provider.Kind
		want int
	}{
		{provider.KindInvalidRequest, http.StatusBadRequest},
		{provider.KindTimeout, http.StatusGatewayTimeout},
		{provider.KindAuth, http.StatusBadGateway},
		{provider.KindServerError, http.StatusBadGateway},
	}
	for _, c := range cases {
		p := &fakeProvider{id: "openrouter", err: &provider.Error{Kind: c.kind, Message: "boom", ProviderID: "openrouter"}}
		h := newTestHandler(t, p, nil)
		w := doJSON(t, h, "POST", "/v1/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
		if w.Code != c.want {
			t.Errorf("kind %s: status = %d, want %d", c.kind, w.Code, c.want)
		}
		var resp analysis.Response
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Success || resp.Error == nil || resp.Error.Kind != string(c.kind) {
			t.Errorf("kind %s: resp = %+v, envelope must carry the provider error", c.kind, resp)
		}
	}
}

func TestAnalyses_EmptyList(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{id: "openrouter", reply: "hi"}, nil)
	req := httptest.NewRequest("GET", "/v1/analyses", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("X-User-ID", "u-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty array", got)
	}
}
