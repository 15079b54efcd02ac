package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute applies when a provider sets no limit.
const DefaultRequestsPerMinute = 60

// RateLimitedProvider wraps a provider with a token bucket.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
	rpm      int
	logger   *zap.Logger
}

// NewRateLimitedProvider allows requestsPerMinute calls per minute with a
// burst of the same size.
func NewRateLimitedProvider(provider Provider, requestsPerMinute int, logger *zap.Logger) *RateLimitedProvider {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), requestsPerMinute),
		rpm:      requestsPerMinute,
		logger:   logger,
	}
}

func (p *RateLimitedProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	return p.provider.Complete(ctx, req)
}

func (p *RateLimitedProvider) Close() error {
	return p.provider.Close()
}

func (p *RateLimitedProvider) GetModelInfo() map[string]interface{} {
	info := p.provider.GetModelInfo()
	info["requests_per_minute"] = p.rpm
	return info
}
