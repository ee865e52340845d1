// Package llm provides a uniform client over remote language-model providers
// with bounded retries, per-provider timeouts, and a shared response cache.
// Agents and the chat composer call Complete without knowing which provider
// answers.
package llm

import (
	"time"
)

// Provider describes one configured remote completion provider.
type Provider struct {
	// Name identifies the provider in logs and results (e.g., "mistral-local").
	Name string `yaml:"name"`

	// Endpoint is the base URL of an OpenAI-compatible chat completions API.
	Endpoint string `yaml:"endpoint"`

	// Model is the model id sent with every request.
	Model string `yaml:"model"`

	// APIKey is the bearer credential. Resolved via the credentials package
	// when left empty in config.
	APIKey string `yaml:"api_key,omitempty"`

	// Timeout bounds a single request attempt.
	Timeout time.Duration `yaml:"timeout"`
}

// RetryPolicy defines retry behavior for failed provider calls.
type RetryPolicy struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Backoff calculates the backoff duration for a given retry attempt.
func (p RetryPolicy) Backoff(retryCount int) time.Duration {
	if retryCount <= 0 {
		return p.InitialBackoff
	}

	backoff := p.InitialBackoff
	for i := 0; i < retryCount; i++ {
		backoff = time.Duration(float64(backoff) * p.BackoffFactor)
		if backoff > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return backoff
}

// Params are the generation parameters for one completion call. They take
// part in the cache key, so two calls with equal prompt and equal Params hit
// the same cache entry.
type Params struct {
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// DefaultParams returns the generation parameters agents use unless
// overridden.
func DefaultParams() Params {
	return Params{
		Temperature: 0.2,
		MaxTokens:   1024,
	}
}

// Result is a successful completion.
type Result struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Cached   bool   `json:"cached"`
}
