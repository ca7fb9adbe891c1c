package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the OpenRouter chat-completions endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

const (
	maxAttempts      = 3
	defaultBaseDelay = 500 * time.Millisecond
)

// APIError is a terminal failure from the external API after retries are
// exhausted. Status 429 means the rate limit held through every attempt.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error: status=%d %s", e.Status, e.Message)
}

// IsRateLimit reports whether err is an APIError caused by rate limiting.
func IsRateLimit(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests
	}
	return false
}

// Message is one chat turn in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool enables an API-side capability, e.g. {Type: "web_search"}.
type Tool struct {
	Type string `json:"type"`
}

// ResponseFormat constrains the completion output shape.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the OpenRouter chat-completion request body. Models
// lists fallbacks tried in order if the primary model is unavailable.
type ChatRequest struct {
	Model          string          `json:"model"`
	Models         []string        `json:"models,omitempty"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Tools          []Tool          `json:"tools,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Choice is one completion candidate; in practice there is exactly one.
type Choice struct {
	Message Message `json:"message"`
}

// ChatResponse is the subset of the completion response the service reads.
// Model is the identifier the router actually served the request with,
// which may be a fallback rather than the requested model.
type ChatResponse struct {
	Choices []Choice `json:"choices"`
	Model   string   `json:"model"`
}

// Content returns the first choice's message text, or "" when the
// response carried no choices.
func (r *ChatResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Client calls the OpenRouter API with bounded retries. Safe for
// concurrent use.
type Client struct {
	baseURL   string
	apiKey    string
	hc        *http.Client
	baseDelay time.Duration
	log       *slog.Logger
}

// NewClient creates a client. If httpClient is nil, a default with a
// generous timeout is used; a single completion with web search can take
// tens of seconds.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		hc:        httpClient,
		baseDelay: defaultBaseDelay,
		log:       slog.Default(),
	}
}

// SetBaseDelay overrides the retry base delay. Used by tests to keep
// backoff waits out of the test run.
func (c *Client) SetBaseDelay(d time.Duration) {
	if d > 0 {
		c.baseDelay = d
	}
}

// Complete issues the chat-completion request with the shared retry
// policy: up to 3 attempts, exponential backoff (base * 2^attempt) after
// a 429, linear backoff (base * attempt) after any other failure. The
// last error is propagated once attempts are exhausted.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llm marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.attempt(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		c.log.Warn("llm request failed",
			"attempt", attempt,
			"model", req.Model,
			"error", err)

		if attempt == maxAttempts {
			break
		}
		delay := c.baseDelay * time.Duration(attempt)
		if IsRateLimit(err) {
			delay = c.baseDelay * time.Duration(1<<attempt)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, body []byte) (*ChatResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	c.log.Debug("llm response", "status", resp.StatusCode, "latency", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: string(bytes.TrimSpace(respBody))}
	}

	var parsed ChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: "unparseable response body"}
	}
	return &parsed, nil
}
