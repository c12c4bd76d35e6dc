package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"meeting_assistant/internal/config"
)

func TestClaudeGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" || r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing auth headers")
		}
		var body anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.System != "be brief" || body.Messages[0].Content != "hello" || body.MaxTokens != 128 {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hi "},{"type":"tool_use"},{"type":"text","text":"there"}]}`))
	}))
	defer srv.Close()

	c, err := NewClaude("secret", "m", srv.URL, 128, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Generate(context.Background(), "hello", "be brief")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "hi there" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer token")
		}
		var body chatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("expected system + user messages, got %+v", body.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI("k", "gpt", srv.URL+"/v1/", 0, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	got, err := o.Generate(context.Background(), "p", "s")
	if err != nil || got != "ok" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ollamaRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/api/generate" || body.Stream || body.Model != "llama3.1" {
			t.Errorf("unexpected request %s %+v", r.URL.Path, body)
		}
		_, _ = w.Write([]byte(`{"response":"local answer"}`))
	}))
	defer srv.Close()

	got, err := NewOllama(srv.URL, "llama3.1", time.Second).Generate(context.Background(), "p", "")
	if err != nil || got != "local answer" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
}

func TestProviderErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := NewClaude("k", "m", srv.URL, 10, time.Second)
	_, err := c.Generate(context.Background(), "p", "")
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if perr.StatusCode != http.StatusTooManyRequests || !perr.Retryable() {
		t.Fatalf("unexpected error %+v", perr)
	}

	auth := &Error{Provider: "x", StatusCode: http.StatusUnauthorized}
	if auth.Retryable() {
		t.Fatal("401 should not be retryable")
	}
}

func TestProviderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "m", 20*time.Millisecond).Generate(context.Background(), "p", "")
	var perr *Error
	if !errors.As(err, &perr) || !perr.Retryable() {
		t.Fatalf("expected retryable transport error, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	cfg := config.LLMConfig{Provider: "ollama", OllamaBaseURL: "http://localhost:11434", OllamaModel: "m", Timeout: time.Second}
	p, err := New(context.Background(), cfg)
	if err != nil || p.Name() != "ollama" {
		t.Fatalf("expected ollama provider, got %v, %v", p, err)
	}
	cfg.Provider = "claude"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected missing key error")
	}
	cfg.Provider = "gemini"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected missing gemini key error")
	}
	cfg.Provider = "bard"
	_, err = New(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "openai") {
		t.Fatalf("expected unknown provider error listing names, got %v", err)
	}
}

func TestLazyDefersProviderBuild(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	cfg := config.LLMConfig{Provider: "Claude", AnthropicBaseURL: srv.URL, AnthropicModel: "m", MaxTokens: 16, Timeout: time.Second}
	lazy := NewLazy(cfg)
	if lazy.Name() != "claude" {
		t.Fatalf("unexpected name %q", lazy.Name())
	}
	_, err := lazy.Generate(context.Background(), "hello", "")
	if err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Fatalf("expected missing key error on first use, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("no request expected without a key, got %d", calls)
	}

	lazy.cfg.AnthropicAPIKey = "secret"
	out, err := lazy.Generate(context.Background(), "hello", "")
	if err != nil || out != "ok" {
		t.Fatalf("expected generation after key is set, got %q %v", out, err)
	}
	if _, err := lazy.Generate(context.Background(), "again", ""); err != nil || calls != 2 {
		t.Fatalf("expected cached provider, calls=%d err=%v", calls, err)
	}
}

func TestGeminiText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "a"}, {Text: "b"}}},
	}}}
	got, err := geminiText(resp)
	if err != nil || got != "ab" {
		t.Fatalf("unexpected %q, %v", got, err)
	}
	if _, err := geminiText(&genai.GenerateContentResponse{}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

type summaryShape struct {
	FullSummary string   `json:"full_summary"`
	KeyPoints   []string `json:"key_points"`
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		structured bool
		summary    string
	}{
		{"plain", `{"full_summary":"a","key_points":["x"]}`, true, "a"},
		{"fenced", "```json\n{\"full_summary\":\"b\"}\n```", true, "b"},
		{"prose", "Here you go:\n{\"full_summary\":\"c {nested}\"}\nThanks!", true, "c {nested}"},
		{"garbage", "I could not do it.", false, ""},
		{"array for object", `["x"]`, false, ""},
		{"empty", "   ", false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decode[summaryShape](tc.raw)
			if got.Structured != tc.structured {
				t.Fatalf("structured=%v, want %v", got.Structured, tc.structured)
			}
			if got.Value.FullSummary != tc.summary {
				t.Fatalf("summary=%q, want %q", got.Value.FullSummary, tc.summary)
			}
			if got.Raw != tc.raw {
				t.Fatal("raw text must be preserved")
			}
		})
	}
}

func TestDecodeArray(t *testing.T) {
	got := Decode[[]map[string]any]("Tasks:\n[{\"title\":\"a\"},{\"title\":\"b\"}]")
	if !got.Structured || len(got.Value) != 2 {
		t.Fatalf("expected two tasks, got %+v", got)
	}
}
