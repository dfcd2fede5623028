// CLAUDE:SUMMARY OpenAI-compatible chat-completions client used to summarize triaged digests.
// Package llm calls an OpenAI-compatible chat-completions endpoint to turn a
// triaged digest into a structured repository summary.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultWordCount is the target summary length when the caller does not ask
// for one.
const DefaultWordCount = 750

const defaultFrequencyPenalty = 0.3

// Config describes one provider endpoint. All fields except AuthEnv have
// working defaults.
type Config struct {
	// BaseURL of the OpenAI-compatible API (default: https://api.openai.com/v1).
	BaseURL string `yaml:"base_url"`

	// Model name sent in each request.
	Model string `yaml:"model"`

	// ModelEnv, when set and the named variable is non-empty, overrides Model.
	ModelEnv string `yaml:"model_env"`

	// AuthEnv names the environment variable holding the API key.
	AuthEnv string `yaml:"auth_env"`

	// MaxOutputTokens caps the response; 0 derives the cap from the requested
	// word count instead. Reasoning models need this set explicitly.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// FrequencyPenalty discourages the model from repeating itself.
	FrequencyPenalty float64 `yaml:"frequency_penalty"`

	// ResponseFormat is "", "json_object", or "json_schema". With
	// "json_schema" the summary schema is enforced server-side.
	ResponseFormat string `yaml:"response_format"`

	// ReasoningEffort is passed through for reasoning models ("low", "medium",
	// "high"); empty omits the field.
	ReasoningEffort string `yaml:"reasoning_effort"`

	Timeout time.Duration `yaml:"timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4.1-mini"
	}
	if c.AuthEnv == "" {
		c.AuthEnv = "OPENAI_API_KEY"
	}
	if c.FrequencyPenalty == 0 {
		c.FrequencyPenalty = defaultFrequencyPenalty
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client talks to one provider.
type Client struct {
	cfg    Config
	hc     *http.Client
	url    string
	apiKey string
	model  string
}

// NewClient resolves the API key and model from the environment and returns
// a ready client. The key must be present.
func NewClient(cfg Config) (*Client, error) {
	cfg.defaults()

	key := os.Getenv(cfg.AuthEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrMissingAPIKey, cfg.AuthEnv)
	}

	model := cfg.Model
	if cfg.ModelEnv != "" {
		if v := os.Getenv(cfg.ModelEnv); v != "" {
			model = v
		}
	}

	return &Client{
		cfg:    cfg,
		hc:     &http.Client{Timeout: cfg.Timeout},
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey: key,
		model:  model,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string          `json:"model"`
	Messages         []chatMessage   `json:"messages"`
	MaxTokens        int             `json:"max_tokens"`
	FrequencyPenalty float64         `json:"frequency_penalty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
	ReasoningEffort  string          `json:"reasoning_effort,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// summarySchema enforces the three-field summary shape when the provider
// supports strict structured output.
var summarySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary":      {"type": "string"},
		"technologies": {"type": "array", "items": {"type": "string"}},
		"structure":    {"type": "string"}
	},
	"required": ["summary", "technologies", "structure"],
	"additionalProperties": false
}`)

// Complete sends one user message and returns the raw model output. maxTokens
// bounds the response unless Config.MaxOutputTokens overrides it.
func (c *Client) Complete(ctx context.Context, content string, maxTokens int) (string, error) {
	if c.cfg.MaxOutputTokens > 0 {
		maxTokens = c.cfg.MaxOutputTokens
	}

	req := chatRequest{
		Model:            c.model,
		Messages:         []chatMessage{{Role: "user", Content: content}},
		MaxTokens:        maxTokens,
		FrequencyPenalty: c.cfg.FrequencyPenalty,
		ReasoningEffort:  c.cfg.ReasoningEffort,
	}
	switch c.cfg.ResponseFormat {
	case "":
	case "json_schema":
		req.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: "repo_summary", Strict: true, Schema: summarySchema},
		}
	default:
		req.ResponseFormat = &responseFormat{Type: c.cfg.ResponseFormat}
	}

	body, err := json.Marshal(&req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.cfg.Logger.Info("calling llm", "model", c.model, "max_tokens", maxTokens)
	start := time.Now()

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(slurp))
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "context window") || strings.Contains(lower, "context length") {
			return "", fmt.Errorf("%w: %s", ErrContextWindow, msg)
		}
		return "", fmt.Errorf("llm upstream %d: %s", resp.StatusCode, msg)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == nil {
		// Reasoning models return null content when the output budget was
		// spent entirely on reasoning tokens.
		return "", ErrEmptyResponse
	}

	out := *cr.Choices[0].Message.Content
	c.cfg.Logger.Info("llm response received",
		"elapsed", time.Since(start), "words", len(strings.Fields(out)))
	return out, nil
}

// Summarize renders the prompt for wordCount and focus, appends the digest,
// and parses the model output into a Summary. The output token budget is
// twice the word count, giving headroom for markdown overhead.
func (c *Client) Summarize(ctx context.Context, digest string, wordCount int, focus string) (*Summary, error) {
	if wordCount <= 0 {
		wordCount = DefaultWordCount
	}
	prompt := BuildPrompt(wordCount, focus)
	content := prompt + "\n\n---\n\nRepository Contents:\n" + digest

	raw, err := c.Complete(ctx, content, wordCount*2)
	if err != nil {
		return nil, err
	}
	return ParseSummary(raw), nil
}
