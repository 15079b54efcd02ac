// Package openai is a chat-completions client for OpenAI-compatible APIs
// (OpenAI, Groq, OpenRouter).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finchat/internal/llm"

	"go.uber.org/zap"
)

// Client wraps an OpenAI-compatible chat completions endpoint
type Client struct {
	provider   llm.ProviderType
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// Config for the chat client. Empty fields get per-provider defaults.
type Config struct {
	Provider   llm.ProviderType
	APIKey     string
	BaseURL    string
	ModelName  string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

var defaults = map[llm.ProviderType]struct{ baseURL, model string }{
	llm.ProviderOpenAI:     {"https://api.openai.com/v1", "gpt-3.5-turbo"},
	llm.ProviderGroq:       {"https://api.groq.com/openai/v1", "llama-3.3-70b-versatile"},
	llm.ProviderOpenRouter: {"https://openrouter.ai/api/v1", "openai/gpt-3.5-turbo"},
}

// NewClient creates a new chat completions client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = llm.ProviderOpenAI
	}
	d, ok := defaults[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider for chat completions: %s", cfg.Provider)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.baseURL
	}
	if cfg.ModelName == "" {
		cfg.ModelName = d.model
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Info("Chat client initialized",
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		provider:   cfg.Provider,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		modelName:  cfg.ModelName,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close closes the client
func (c *Client) Close() error {
	return nil
}

// Complete sends one system+user exchange and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	jsonData, err := json.Marshal(chatRequest{
		Model:       c.modelName,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying chat request",
				zap.String("provider", string(c.provider)),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		content, err := c.do(ctx, jsonData, attempt)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, jsonData []byte, attempt int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.provider == llm.ProviderOpenRouter {
		req.Header.Set("HTTP-Referer", "https://github.com/finchat")
		req.Header.Set("X-Title", "Finance Chat")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Chat API error", zap.Error(err), zap.Int("attempt", attempt+1))
		return "", fmt.Errorf("%s API error: %w", c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%s API returned status %d: %w", c.provider, resp.StatusCode, llm.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Chat API error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
			zap.Int("attempt", attempt+1))
		return "", fmt.Errorf("%s API returned status %d: %s", c.provider, resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", c.provider, llm.ErrEmptyResponse)
	}

	c.logger.Debug("Chat completion received",
		zap.String("provider", string(c.provider)),
		zap.Int("total_tokens", parsed.Usage.TotalTokens),
		zap.Int("attempt", attempt+1))

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    string(c.provider),
		"model":       c.modelName,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
