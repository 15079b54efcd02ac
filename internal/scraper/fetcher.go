// Package scraper turns web pages into plain text for the retrieval pipeline.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Fetcher returns the visible text of a page.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Config selects and tunes a Fetcher.
type Config struct {
	Mode      string // "http", "readability" or "browser"
	Timeout   time.Duration
	UserAgent string
	Headless  bool
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// New builds the fetcher for cfg.Mode. The returned close func releases
// browser resources and is a no-op for the other modes.
func New(cfg Config, logger *zap.Logger) (Fetcher, func(), error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	switch cfg.Mode {
	case "", "http":
		return NewHTTPFetcher(cfg, logger), func() {}, nil
	case "readability":
		return NewReadabilityFetcher(cfg, logger), func() {}, nil
	case "browser":
		f := NewBrowserFetcher(cfg, logger)
		return f, f.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown scraper mode: %s", cfg.Mode)
	}
}

// CollapseWhitespace replaces every whitespace run with one space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// getPage performs the GET shared by the http and readability fetchers.
// The caller closes the body.
func getPage(ctx context.Context, client *http.Client, userAgent, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s returned status %d", url, resp.StatusCode)
	}

	return resp.Body, nil
}
