package scraper

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// ReadabilityFetcher extracts the main article text of a page.
type ReadabilityFetcher struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

func NewReadabilityFetcher(cfg Config, logger *zap.Logger) *ReadabilityFetcher {
	return &ReadabilityFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

func (f *ReadabilityFetcher) FetchText(ctx context.Context, url string) (string, error) {
	pageURL, err := neturl.Parse(url)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", url, err)
	}

	body, err := getPage(ctx, f.client, f.userAgent, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	article, err := readability.FromReader(body, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}

	text := CollapseWhitespace(article.TextContent)

	f.logger.Debug("Article extracted",
		zap.String("url", url),
		zap.String("title", article.Title),
		zap.Int("text_length", len(text)))

	return text, nil
}
