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

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/metrics"
)

// Client fans completion calls out to the configured providers in order,
// retrying transient failures per provider before failing over to the next.
// A shared FIFO response cache short-circuits repeat calls.
type Client struct {
	providers  []Provider
	retry      RetryPolicy
	cache      *responseCache
	httpClient *http.Client
	logger     logging.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (primarily for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithCacheCapacity bounds the response cache entry count.
func WithCacheCapacity(n int) Option {
	return func(c *Client) { c.cache = newResponseCache(n) }
}

// NewClient creates a client over the given providers. At least one provider
// is required.
func NewClient(providers []Provider, opts ...Option) (*Client, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("llm: %w: at least one provider required", pferrors.ErrValidation)
	}

	c := &Client{
		providers:  providers,
		retry:      DefaultRetryPolicy(),
		cache:      newResponseCache(512),
		httpClient: &http.Client{},
		logger:     logging.MustGlobal(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.F("component", "llm_client"))
	return c, nil
}

// Complete runs one completion call. The cache is consulted before any
// network I/O and updated only after a successful call. On exhausting every
// provider's retry budget the error wraps ErrProviderExhausted so callers
// can branch to a fallback path deterministically.
func (c *Client) Complete(ctx context.Context, prompt string, params Params) (*Result, error) {
	key := cacheKey(prompt, params)

	for {
		if res, ok := c.cache.get(key); ok {
			metrics.CacheHits.Inc()
			return res, nil
		}

		wait, owner := c.cache.begin(key)
		if owner {
			break
		}

		// Another caller has the identical pair in flight; wait for it and
		// re-check the cache rather than dialing the provider again.
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, pferrors.ClassifyError(ctx.Err(), "llm_complete")
		}
	}
	defer c.cache.finish(key)

	metrics.CacheMisses.Inc()

	var lastErr error
	for _, provider := range c.providers {
		res, err := c.completeWithRetry(ctx, provider, prompt, params)
		if err == nil {
			c.cache.put(key, res)
			return res, nil
		}
		lastErr = err
		c.logger.Warn("provider failed, trying next",
			logging.F("provider", provider.Name),
			logging.Err(err))

		if pe := pferrors.ClassifyError(err, "llm_complete"); pe.Code == pferrors.ErrContextCancelled {
			return nil, pe
		}
	}

	return nil, fmt.Errorf("llm: %w: %v", pferrors.ErrProviderExhausted, lastErr)
}

// completeWithRetry runs one provider's attempt loop with exponential backoff
// between retryable failures.
func (c *Client) completeWithRetry(ctx context.Context, provider Provider, prompt string, params Params) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retry.Backoff(attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		res, err := c.callProvider(ctx, provider, prompt, params)
		if err == nil {
			metrics.ProviderCalls.WithLabelValues(provider.Name, "success").Inc()
			return res, nil
		}
		lastErr = err
		metrics.ProviderCalls.WithLabelValues(provider.Name, "error").Inc()

		if !pferrors.IsRetryable(pferrors.ClassifyError(err, "llm_call")) {
			return nil, err
		}
	}
	return nil, lastErr
}

// Wire types for the OpenAI-compatible chat completions API.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// callProvider executes a single request attempt against one provider.
func (c *Client) callProvider(ctx context.Context, provider Provider, prompt string, params Params) (*Result, error) {
	timeout := provider.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var messages []chatMessage
	if params.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: params.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       provider.Model,
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(provider.Endpoint, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider %s returned HTTP %d: %s", provider.Name, resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("malformed response: no choices returned")
	}

	c.logger.Debug("completion succeeded",
		logging.F("provider", provider.Name),
		logging.F("duration", time.Since(start)))

	return &Result{
		Text:     parsed.Choices[0].Message.Content,
		Provider: provider.Name,
		Model:    provider.Model,
	}, nil
}

// CacheSize reports the number of cached responses.
func (c *Client) CacheSize() int {
	return c.cache.len()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
