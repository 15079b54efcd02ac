// Package llm holds the text-completion provider abstraction shared by the
// concrete clients, plus rate limiting and multi-provider failover.
package llm

import (
	"context"
	"errors"
	"time"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderGemini     ProviderType = "gemini"
)

var (
	ErrRateLimited   = errors.New("rate limited")
	ErrEmptyResponse = errors.New("empty response")
)

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type       ProviderType  `yaml:"type"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	ModelName  string        `yaml:"model_name"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Timeout    time.Duration `yaml:"timeout"`
	// Rate limiting per provider
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Provider interface for any LLM provider
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}
