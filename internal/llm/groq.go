package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GroqConfig configures the OpenAI-compatible Groq provider (the "fast"
// path: Llama served by Groq).
type GroqConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Groq talks to Groq's OpenAI-compatible chat-completions endpoint with a
// plain HTTP client.
type Groq struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewGroq(cfg GroqConfig) (*Groq, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("groq base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("groq api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "llama-3.1-70b-versatile"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Groq{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Complete(ctx context.Context, req Request) (string, error) {
	payload := map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", classify(g.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(g.Name(), err)
	}
	if resp.StatusCode >= 400 {
		return "", g.statusError(resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ProviderError{Provider: g.Name(), Class: ClassProvider, Message: "malformed completion response"}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: g.Name(), Class: ClassProvider, Message: "empty completion choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}

// statusError maps an HTTP status to an error class without leaking the
// response body.
func (g *Groq) statusError(status int) *ProviderError {
	switch {
	case status == http.StatusTooManyRequests:
		return &ProviderError{Provider: g.Name(), Class: ClassRateLimit, Message: "rate limited"}
	case status >= 500:
		return &ProviderError{Provider: g.Name(), Class: ClassTransport, Message: fmt.Sprintf("upstream status %d", status)}
	default:
		return &ProviderError{Provider: g.Name(), Class: ClassProvider, Message: fmt.Sprintf("request rejected with status %d", status)}
	}
}
