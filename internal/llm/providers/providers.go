// Package providers builds concrete LLM clients from configuration.
package providers

import (
	"context"
	"fmt"

	"finchat/internal/llm"
	"finchat/internal/llm/gemini"
	"finchat/internal/llm/openai"

	"go.uber.org/zap"
)

// NewFactory returns an llm.Factory for every supported provider type.
func NewFactory(ctx context.Context, logger *zap.Logger) llm.Factory {
	return func(cfg llm.ProviderConfig) (llm.Provider, error) {
		var (
			provider llm.Provider
			err      error
		)

		switch cfg.Type {
		case llm.ProviderGemini:
			provider, err = gemini.NewClient(ctx, gemini.Config{
				APIKey:     cfg.APIKey,
				ModelName:  cfg.ModelName,
				MaxRetries: cfg.MaxRetries,
				RetryDelay: cfg.RetryDelay,
			}, logger)
		case llm.ProviderOpenAI, llm.ProviderGroq, llm.ProviderOpenRouter:
			provider, err = openai.NewClient(openai.Config{
				Provider:   cfg.Type,
				APIKey:     cfg.APIKey,
				BaseURL:    cfg.BaseURL,
				ModelName:  cfg.ModelName,
				MaxRetries: cfg.MaxRetries,
				RetryDelay: cfg.RetryDelay,
				Timeout:    cfg.Timeout,
			}, logger)
		default:
			return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
		}
		if err != nil {
			return nil, err
		}
		return provider, nil
	}
}

// NewMultiProvider builds the failover client over every configured provider.
func NewMultiProvider(ctx context.Context, cfgs []llm.ProviderConfig, maxFailures int, logger *zap.Logger) (*llm.MultiProviderClient, error) {
	return llm.NewMultiProviderClient(llm.MultiProviderConfig{
		Providers:   cfgs,
		MaxFailures: maxFailures,
	}, NewFactory(ctx, logger), logger)
}
