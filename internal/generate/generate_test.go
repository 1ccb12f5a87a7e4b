package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestPrompts_Render(t *testing.T) {
	p, err := LoadPrompts()
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Response("Potholes on MG Road", []string{"Road damaged near school", "Broken road"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Potholes on MG Road", "1. Road damaged near school", "2. Broken road"} {
		if !strings.Contains(got, want) {
			t.Errorf("response prompt missing %q:\n%s", want, got)
		}
	}

	got, err = p.Response("Only this", nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "Similar feedback") {
		t.Error("similar section should be omitted when there is no context")
	}

	got, err = p.Summary([]string{"a", "b"}, []string{"c"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"1. a", "2. b", "Related feedback", "1. c"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary prompt missing %q:\n%s", want, got)
		}
	}
}

func TestGeminiClient_Generate(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"We are on it. "},{"text":"Thanks."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	prompts, _ := LoadPrompts()
	c, err := NewGeminiClient(srv.URL, "gemini-test", "secret", prompts, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.GenerateResponse(context.Background(), "Streetlights off", []string{"Dark street"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "We are on it. Thanks." {
		t.Errorf("got %q", got)
	}
	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Errorf("path = %s", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api key header = %q", gotKey)
	}
	if !strings.Contains(gotPrompt, "Streetlights off") || !strings.Contains(gotPrompt, "Dark street") {
		t.Errorf("prompt did not include feedback and context: %s", gotPrompt)
	}
}

func TestGeminiClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota exceeded"}}`},
		{"non json error", http.StatusBadGateway, `upstream down`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`},
		{"bad json", http.StatusOK, `{`},
	}
	prompts, _ := LoadPrompts()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c, _ := NewGeminiClient(srv.URL, "m", "k", prompts, srv.Client())
			_, err := c.GenerateSummary(context.Background(), []string{"x"}, nil)
			if !errors.Is(err, ErrGeneration) {
				t.Errorf("err = %v, want ErrGeneration", err)
			}
		})
	}
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	prompts, _ := LoadPrompts()
	if _, err := NewGeminiClient("", "", "", prompts, nil); err == nil {
		t.Error("expected error without api key")
	}
}

func TestOllamaClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			var req OllamaRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Stream || req.Model != "llama3" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(OllamaResponse{Model: req.Model, Response: " Summary text ", Done: true})
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	prompts, _ := LoadPrompts()
	c, err := NewOllamaClient(srv.URL+"/", "llama3", prompts, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, err := c.GenerateSummary(context.Background(), []string{"a"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Summary text" {
		t.Errorf("got %q", got)
	}
}

func TestOllamaClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()
	prompts, _ := LoadPrompts()
	c, _ := NewOllamaClient(srv.URL, "missing", prompts, srv.Client())
	if _, err := c.GenerateResponse(context.Background(), "x", nil); !errors.Is(err, ErrGeneration) {
		t.Errorf("err = %v, want ErrGeneration", err)
	}
}

func TestTemplateGenerator(t *testing.T) {
	g := NewTemplateGenerator()
	ctx := context.Background()
	got, err := g.GenerateResponse(ctx, "Garbage not collected", []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Garbage not collected") || !strings.Contains(got, "1 similar report,") {
		t.Errorf("unexpected response: %s", got)
	}
	again, _ := g.GenerateResponse(ctx, "Garbage not collected", []string{"x"})
	if again != got {
		t.Error("template generator should be deterministic")
	}

	sum, err := g.GenerateSummary(ctx, []string{"a", "b", "c", "d", "e"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sum, "5 feedback items received.") || !strings.Contains(sum, "and 2 more") {
		t.Errorf("unexpected summary: %s", sum)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := g.GenerateSummary(cancelled, []string{"a"}, nil); !errors.Is(err, ErrGeneration) {
		t.Errorf("err = %v, want ErrGeneration", err)
	}
}

func TestNew(t *testing.T) {
	g, err := New(Config{Provider: ProviderTemplate}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := g.(*TemplateGenerator); !ok {
		t.Errorf("got %T, want *TemplateGenerator", g)
	}
	if _, err := New(Config{Provider: ProviderGemini}, nil); err == nil {
		t.Error("expected error for gemini without key")
	}
	if _, err := New(Config{Provider: "gpt"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
	g, err = New(Config{Provider: ProviderOllama, Model: "llama3"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := g.(*OllamaClient); !ok {
		t.Errorf("got %T, want *OllamaClient", g)
	}
}
