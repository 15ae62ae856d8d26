// Package summarize condenses a transcript into digest text through the
// OpenRouter chat-completions API.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIBase     = "https://openrouter.ai/api/v1"
	defaultModel       = "google/gemini-2.0-flash-001"
	defaultHTTPTimeout = 180 * time.Second

	// maxCompletionTokens bounds the generated digest length.
	maxCompletionTokens = 8000

	systemPrompt = "You are a helpful assistant for text summarization."

	// Optional attribution headers OpenRouter uses for request tracking.
	refererHeader = "https://github.com/chandigest"
	titleHeader   = "chandigest"
)

// OpenRouter is a chat-completions client for OpenAI-compatible endpoints.
type OpenRouter struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// OpenRouterConfig configures an OpenRouter client.
type OpenRouterConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewOpenRouter creates an OpenRouter client.
func NewOpenRouter(cfg OpenRouterConfig) *OpenRouter {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &OpenRouter{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		model:   cfg.Model,
		client:  newHTTPClient(cfg.Timeout),
		logger:  cfg.Logger,
	}
}

// Healthy probes the endpoint with the configured key. Used by doctor checks.
func (o *OpenRouter) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", o.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("openrouter not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("openrouter: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openrouter returned %d", resp.StatusCode)
	}
	return nil
}

type orRequest struct {
	Model       string      `json:"model"`
	Messages    []orMessage `json:"messages"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
}

type orMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type orResponse struct {
	Choices []orChoice `json:"choices"`
}

type orChoice struct {
	Message orMessage `json:"message"`
}

// Summarize sends the prompt and transcript as one completion request and
// returns the generated digest text. Any failure, including an empty
// completion, is an error: a normal run must not fall back to raw text.
func (o *OpenRouter) Summarize(ctx context.Context, prompt, transcript string) (string, error) {
	body := orRequest{
		Model: o.model,
		Messages: []orMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt + "\n" + transcript},
		},
		MaxTokens:   maxCompletionTokens,
		Temperature: 0.7,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	buildReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", o.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
		req.Header.Set("HTTP-Referer", refererHeader)
		req.Header.Set("X-Title", titleHeader)
		return req, nil
	}

	resp, err := doWithRetry(ctx, o.client, buildReq, o.logger)
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openrouter %d: %s", resp.StatusCode, string(respBody))
	}

	var orResp orResponse
	if err := json.NewDecoder(resp.Body).Decode(&orResp); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	if len(orResp.Choices) == 0 {
		return "", fmt.Errorf("openrouter returned no choices")
	}
	text := orResp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("openrouter returned an empty completion")
	}
	return text, nil
}
