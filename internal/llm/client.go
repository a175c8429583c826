// Package llm implements vision completion backends: Ollama's native chat
// API and OpenAI-compatible chat completions.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cognicore/tactica/pkg/tactica/vlm"
)

const (
	defaultHTTPTimeout   = 300 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 1 * time.Second
	defaultMaxTokens     = 4096
	defaultTemperature   = 0.1
)

// Provider selects the wire protocol.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// Config captures the settings needed to reach a vision model.
type Config struct {
	Provider Provider
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client sends image-plus-prompt requests to a vision model.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryDelay       time.Duration
}

var _ vlm.Backend = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default attempt count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryDelay sets the delay before the first retry. Later retries
// double it.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// NewClient constructs a client for cfg.Provider.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Provider == "" {
		cfg.Provider = ProviderOllama
	}
	if cfg.Provider != ProviderOllama && cfg.Provider != ProviderOpenAI {
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, errors.New("llm: base URL and model required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	c := &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryDelay:       defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Complete sends one request, retrying transient failures.
func (c *Client) Complete(ctx context.Context, req vlm.Request) (string, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	var (
		endpoint string
		body     any
		decode   func([]byte) (string, error)
	)
	switch c.cfg.Provider {
	case ProviderOpenAI:
		endpoint, body, decode = c.cfg.BaseURL+"/chat/completions", openAIRequest(c.cfg.Model, req), decodeOpenAI
	default:
		endpoint, body, decode = c.cfg.BaseURL+"/api/chat", ollamaRequest(c.cfg.Model, req), decodeOllama
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}

	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		raw, err := c.send(ctx, endpoint, encoded)
		if err == nil {
			var content string
			if content, err = decode(raw); err == nil {
				return content, nil
			}
		}
		if attempt >= attempts || !retryable(err) || ctx.Err() != nil {
			if attempt > 1 {
				return "", fmt.Errorf("llm complete: failed after %d attempts: %w", attempt, err)
			}
			return "", err
		}
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct{ snippet string }

func (e *emptyContentError) Error() string {
	return "llm request: empty content: " + e.snippet
}

func (c *Client) send(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request: http error: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: snippet(string(raw))}
	}
	return raw, nil
}

// retryable reports whether err is transient: empty replies, timeouts,
// throttling and server errors.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return true
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const limit = 160
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
