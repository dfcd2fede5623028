package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("TEST_LLM_KEY", "sk-test")
	cfg.BaseURL = srv.URL
	cfg.AuthEnv = "TEST_LLM_KEY"

	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

// WHAT: Complete sends an OpenAI-shaped chat request with auth header,
// model, max_tokens, and frequency penalty, and returns the first choice.
func TestComplete(t *testing.T) {
	var captured chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}, Config{Model: "test-model"})

	out, err := c.Complete(context.Background(), "hi", 1500)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello" {
		t.Errorf("Complete = %q", out)
	}
	if captured.Model != "test-model" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.MaxTokens != 1500 {
		t.Errorf("max_tokens = %d", captured.MaxTokens)
	}
	if captured.FrequencyPenalty != defaultFrequencyPenalty {
		t.Errorf("frequency_penalty = %v", captured.FrequencyPenalty)
	}
}

// WHAT: MaxOutputTokens overrides the word-count-derived budget, and the
// json_schema response format carries the strict summary schema.
func TestCompleteConfigOverrides(t *testing.T) {
	var captured chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}, Config{MaxOutputTokens: 9000, ResponseFormat: "json_schema", ReasoningEffort: "low"})

	if _, err := c.Complete(context.Background(), "hi", 100); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if captured.MaxTokens != 9000 {
		t.Errorf("max_tokens = %d, want override 9000", captured.MaxTokens)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_schema" {
		t.Fatalf("response_format = %+v", captured.ResponseFormat)
	}
	if captured.ResponseFormat.JSONSchema.Name != "repo_summary" {
		t.Errorf("schema name = %q", captured.ResponseFormat.JSONSchema.Name)
	}
	if captured.ReasoningEffort != "low" {
		t.Errorf("reasoning_effort = %q", captured.ReasoningEffort)
	}
}

// WHAT: upstream failures classify by body text.
// WHY: a context-window overflow is the caller's problem (shrink the digest,
// 422), null content means the model spent its budget on reasoning.
func TestCompleteErrors(t *testing.T) {
	t.Run("context window", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"maximum context length exceeded"}`, http.StatusBadRequest)
		}, Config{})
		_, err := c.Complete(context.Background(), "hi", 100)
		if !errors.Is(err, ErrContextWindow) {
			t.Errorf("err = %v, want ErrContextWindow", err)
		}
	})

	t.Run("null content", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[{"message":{"content":null}}]}`))
		}, Config{})
		_, err := c.Complete(context.Background(), "hi", 100)
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("err = %v, want ErrEmptyResponse", err)
		}
	})
}

func TestNewClientMissingKey(t *testing.T) {
	t.Setenv("TEST_LLM_KEY_UNSET", "")
	_, err := NewClient(Config{AuthEnv: "TEST_LLM_KEY_UNSET"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

// WHAT: Summarize wires prompt, focus, and digest into one user message and
// parses the structured reply.
func TestSummarize(t *testing.T) {
	var content string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		content = req.Messages[0].Content
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"a web app\",\"technologies\":[\"Go\"],\"structure\":\"flat\"}"}}]}`))
	}, Config{})

	s, err := c.Summarize(context.Background(), "FILE: main.go", 500, "focus on auth")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Summary != "a web app" || len(s.Technologies) != 1 || s.Structure != "flat" {
		t.Errorf("Summary = %+v", s)
	}
	for _, want := range []string{"roughly 500 words", "focus on auth", "Repository Contents:\nFILE: main.go"} {
		if !strings.Contains(content, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
