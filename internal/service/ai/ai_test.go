package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

type fakeProvider struct {
	mu      sync.Mutex
	name    string
	text    string
	err     error
	prompts []string
	opts    []GenerateOptions
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(_ context.Context, prompt string, opts GenerateOptions) (ProviderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return ProviderResult{}, f.err
	}
	return ProviderResult{Text: f.text, Model: f.name + "-model"}, nil
}

func (f *fakeProvider) Ping(context.Context) bool { return f.err == nil }

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func TestGenerateUsesPrimaryAndDefaults(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", text: "  Je rappe au clair de lune \n"}
	defaults := GenerateOptions{Temperature: 0.7, TopP: 0.9, MaxOutputTokens: 256}
	mm := NewModelManagerWithProviders(primary, nil, defaults, zap.NewNop())

	text, meta, err := mm.Generate(context.Background(), "écris un couplet")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Je rappe au clair de lune" {
		t.Fatalf("text = %q", text)
	}
	if meta.Provider != "Gemini" || meta.UsedFallback || meta.Model != "Gemini-model" {
		t.Fatalf("metadata = %+v", meta)
	}
	if !reflect.DeepEqual(primary.opts[0], defaults) {
		t.Fatalf("options = %+v", primary.opts[0])
	}
}

func TestGenerateFallsBackOnPrimaryError(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", err: errors.New("Error 503, Message: overloaded")}
	fallback := &fakeProvider{name: "OpenAI", text: "refrain"}
	mm := NewModelManagerWithProviders(primary, fallback, GenerateOptions{}, zap.NewNop())

	text, meta, err := mm.Generate(context.Background(), "q")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "refrain" || !meta.UsedFallback || meta.Provider != "OpenAI" {
		t.Fatalf("text=%q meta=%+v", text, meta)
	}
	if got := mm.GetCircuitStatus().FailureCount; got != 0 {
		t.Fatalf("fallback success should reset failures, got %d", got)
	}
}

func TestCircuitOpensAfterRepeatedServiceFailures(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", err: errors.New("Error 500, Message: internal")}
	mm := NewModelManagerWithProviders(primary, nil, GenerateOptions{}, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, _, err := mm.Generate(context.Background(), "q"); err == nil {
			t.Fatalf("attempt %d should fail", i)
		}
	}

	_, _, err := mm.Generate(context.Background(), "q")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if primary.calls() != 3 {
		t.Fatalf("open circuit should not call the provider, calls = %d", primary.calls())
	}

	mm.ResetCircuit()
	primary.mu.Lock()
	primary.err = nil
	primary.text = "ok"
	primary.mu.Unlock()
	if _, _, err := mm.Generate(context.Background(), "q"); err != nil {
		t.Fatalf("after reset: %v", err)
	}
}

func TestClientErrorsDoNotOpenCircuit(t *testing.T) {
	primary := &fakeProvider{name: "OpenAI", err: errors.New("400 Bad Request: invalid model")}
	mm := NewModelManagerWithProviders(primary, nil, GenerateOptions{}, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, _, _ = mm.Generate(context.Background(), "q")
	}
	if primary.calls() != 5 {
		t.Fatalf("client errors must not trip the breaker, calls = %d", primary.calls())
	}
}

func TestEmptyAnswerIsAnError(t *testing.T) {
	mm := NewModelManagerWithProviders(&fakeProvider{name: "Gemini", text: "   "}, nil, GenerateOptions{}, zap.NewNop())
	if _, _, err := mm.Generate(context.Background(), "q"); err == nil {
		t.Fatalf("blank answer should fail")
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		msg         string
		service     bool
		rateLimited bool
	}{
		{"Error 503, Message: unavailable", true, false},
		{`{"error":{"code":429,"message":"quota"}}`, true, true},
		{"429 Too Many Requests", true, true},
		{"context deadline exceeded (Client.Timeout exceeded): timeout", true, false},
		{"400 Bad Request", false, false},
		{"invalid prompt", false, false},
	}
	for _, tc := range cases {
		err := errors.New(tc.msg)
		if got := isServiceFailure(err); got != tc.service {
			t.Errorf("isServiceFailure(%q) = %v", tc.msg, got)
		}
		if got := isRateLimitError(err); got != tc.rateLimited {
			t.Errorf("isRateLimitError(%q) = %v", tc.msg, got)
		}
	}
}

func newOpenAIServer(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		bodies = append(bodies, body)

		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embeddings":
			_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
				"data":[
					{"object":"embedding","index":1,"embedding":[0.5,0.25]},
					{"object":"embedding","index":0,"embedding":[1,0]}
				],
				"usage":{"prompt_tokens":4,"total_tokens":4}}`))
		case "/chat/completions":
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4.1-mini",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Bienvenue dans le 75"}}],
				"usage":{"prompt_tokens":3,"completion_tokens":5,"total_tokens":8}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &bodies
}

func TestOpenAIEmbedderKeepsInputOrder(t *testing.T) {
	server, bodies := newOpenAIServer(t)
	embedder := NewOpenAIEmbedder("sk-test", "", zap.NewNop(),
		option.WithBaseURL(server.URL+"/"),
		option.WithMaxRetries(0),
	)

	vectors, err := embedder.Embed(context.Background(), []string{"premier", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := [][]float32{{1, 0}, {0.5, 0.25}}
	if !reflect.DeepEqual(vectors, want) {
		t.Fatalf("vectors = %v", vectors)
	}
	if (*bodies)[0]["model"] != "text-embedding-3-small" {
		t.Fatalf("request = %v", (*bodies)[0])
	}

	if _, err := embedder.Embed(context.Background(), []string{"un seul"}); err == nil {
		t.Fatalf("count mismatch should fail")
	}
}

func TestOpenAIProviderGenerate(t *testing.T) {
	server, bodies := newOpenAIServer(t)
	provider := NewOpenAIProvider("sk-test", "gpt-4.1-mini", zap.NewNop(),
		option.WithBaseURL(server.URL+"/"),
		option.WithMaxRetries(0),
	)

	result, err := provider.Generate(context.Background(), "question", GenerateOptions{Temperature: 0.5, TopP: 1, MaxOutputTokens: 64})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Text != "Bienvenue dans le 75" || result.Model != "gpt-4.1-mini" {
		t.Fatalf("result = %+v", result)
	}
	body := (*bodies)[0]
	if body["max_completion_tokens"] != float64(64) || body["temperature"] != 0.5 {
		t.Fatalf("request = %v", body)
	}

	if NewOpenAIProvider("", "gpt-4.1-mini", zap.NewNop()) != nil {
		t.Fatalf("empty key should disable the provider")
	}
}

func TestNewEmbedderRejectsUnknownProvider(t *testing.T) {
	if _, err := NewEmbedder(context.Background(), EmbedderConfig{Provider: "huggingface"}, zap.NewNop()); err == nil {
		t.Fatalf("unknown provider should fail")
	}
	if _, err := NewEmbedder(context.Background(), EmbedderConfig{Provider: "openai"}, zap.NewNop()); err == nil {
		t.Fatalf("missing key should fail")
	}
	e, err := NewEmbedder(context.Background(), EmbedderConfig{Provider: "OpenAI", OpenAIAPIKey: "sk"}, zap.NewNop())
	if err != nil || e.Name() != "OpenAI" {
		t.Fatalf("openai embedder: %v %v", e, err)
	}
}
