package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var ErrAllProvidersFailed = errors.New("all providers failed")

// Factory builds a concrete provider from its configuration.
type Factory func(cfg ProviderConfig) (Provider, error)

// MultiProviderConfig holds configuration for multiple providers
type MultiProviderConfig struct {
	Providers   []ProviderConfig
	MaxFailures int // Max consecutive failures before switching provider
}

// MultiProviderClient manages multiple LLM providers with fallback
type MultiProviderClient struct {
	providers    []*RateLimitedProvider
	types        []ProviderType
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// NewMultiProviderClient creates every configured provider through factory.
// Providers that fail to initialize are skipped.
func NewMultiProviderClient(cfg MultiProviderConfig, factory Factory, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}

	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}

	providers := make([]*RateLimitedProvider, 0, len(cfg.Providers))
	types := make([]ProviderType, 0, len(cfg.Providers))

	for i, providerCfg := range cfg.Providers {
		provider, err := factory(providerCfg)
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		rateLimited := NewRateLimitedProvider(provider, providerCfg.RequestsPerMinute, logger)
		providers = append(providers, rateLimited)
		types = append(types, providerCfg.Type)

		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.String("model", providerCfg.ModelName),
			zap.Int("rate_limit", rateLimited.rpm),
			zap.Int("index", i))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers could be initialized")
	}

	return &MultiProviderClient{
		providers:    providers,
		types:        types,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  cfg.MaxFailures,
	}, nil
}

func (c *MultiProviderClient) current() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentIndex
}

// switchFrom moves past index unless another caller already did.
func (c *MultiProviderClient) switchFrom(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentIndex != index {
		return
	}
	c.currentIndex = (index + 1) % len(c.providers)
	c.failureCount[index] = 0

	c.logger.Info("Switching provider",
		zap.Int("from_index", index),
		zap.Int("to_index", c.currentIndex),
		zap.Int("total_providers", len(c.providers)))
}

// recordFailure reports whether the provider reached the failure limit.
func (c *MultiProviderClient) recordFailure(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount[index]++

	if c.failureCount[index] >= c.maxFailures {
		c.logger.Warn("Provider reached max failures",
			zap.Int("provider_index", index),
			zap.Int("failures", c.failureCount[index]))
		return true
	}

	return false
}

func (c *MultiProviderClient) resetFailureCount(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount[index] = 0
}

// Complete starts at the current provider and tries each provider at most once.
func (c *MultiProviderClient) Complete(ctx context.Context, req Request) (string, error) {
	start := c.current()

	var lastErr error
	for attempt := 0; attempt < len(c.providers); attempt++ {
		index := (start + attempt) % len(c.providers)

		c.logger.Debug("Attempting completion",
			zap.Int("provider_index", index),
			zap.Int("attempt", attempt+1))

		result, err := c.providers[index].Complete(ctx, req)
		if err == nil {
			c.resetFailureCount(index)
			return result, nil
		}
		lastErr = err

		c.logger.Error("Provider failed",
			zap.Int("provider_index", index),
			zap.String("type", string(c.types[index])),
			zap.Error(err))

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		shouldSwitch := c.recordFailure(index)
		if shouldSwitch || isRateLimitError(err) {
			c.switchFrom(index)
		}
	}

	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
}

// isRateLimitError checks if error is a rate limit error
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "rate limit")
}

// Close closes all providers
func (c *MultiProviderClient) Close() error {
	var errs []error
	for i, provider := range c.providers {
		if err := provider.Close(); err != nil {
			c.logger.Error("Failed to close provider",
				zap.Int("index", i),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetModelInfo returns information about the current provider
func (c *MultiProviderClient) GetModelInfo() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := c.providers[c.currentIndex].GetModelInfo()
	info["is_current"] = true
	info["provider_index"] = c.currentIndex
	info["total_providers"] = len(c.providers)
	info["failure_count"] = c.failureCount[c.currentIndex]
	return info
}

// GetProvidersInfo returns information about all providers
func (c *MultiProviderClient) GetProvidersInfo() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := make([]map[string]interface{}, len(c.providers))
	for i, provider := range c.providers {
		providerInfo := provider.GetModelInfo()
		providerInfo["is_current"] = (i == c.currentIndex)
		providerInfo["failure_count"] = c.failureCount[i]
		info[i] = providerInfo
	}
	return info
}
