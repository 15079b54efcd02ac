// Package pinecone is a minimal client for the Pinecone data-plane REST API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finchat/internal/vectorstore"

	"go.uber.org/zap"
)

const (
	apiVersion     = "2024-07"
	upsertBatchMax = 100
)

// Storage talks to one index host.
type Storage struct {
	host      string
	apiKey    string
	namespace string
	client    *http.Client
	logger    *zap.Logger
}

type Config struct {
	Host      string // index host, with or without scheme
	APIKey    string
	Namespace string
	Timeout   time.Duration
}

type vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	Namespace       string    `json:"namespace,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float32        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

type deleteRequest struct {
	DeleteAll bool   `json:"deleteAll"`
	Namespace string `json:"namespace,omitempty"`
}

func NewStorage(cfg Config, logger *zap.Logger) (*Storage, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("pinecone index host is required")
	}
	host := strings.TrimRight(cfg.Host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Storage{
		host:      host,
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}, nil
}

// Upsert writes records in batches of at most 100 vectors.
func (s *Storage) Upsert(ctx context.Context, records []vectorstore.Record) error {
	for start := 0; start < len(records); start += upsertBatchMax {
		end := min(start+upsertBatchMax, len(records))

		req := upsertRequest{Namespace: s.namespace, Vectors: make([]vector, 0, end-start)}
		for _, r := range records[start:end] {
			req.Vectors = append(req.Vectors, vector{
				ID:       r.ID,
				Values:   r.Vector,
				Metadata: map[string]any{"text": r.Text},
			})
		}

		if err := s.post(ctx, "/vectors/upsert", req, nil); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
	}

	s.logger.Debug("Vectors upserted", zap.Int("count", len(records)))
	return nil
}

func (s *Storage) Query(ctx context.Context, v []float32, topK int) ([]vectorstore.Match, error) {
	var resp queryResponse
	err := s.post(ctx, "/query", queryRequest{
		Vector:          v,
		TopK:            topK,
		IncludeMetadata: true,
		Namespace:       s.namespace,
	}, &resp)
	if err != nil {
		return nil, err
	}

	matches := make([]vectorstore.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		text, _ := m.Metadata["text"].(string)
		matches = append(matches, vectorstore.Match{ID: m.ID, Score: m.Score, Text: text})
	}
	return matches, nil
}

// Clear deletes every vector in the namespace.
func (s *Storage) Clear(ctx context.Context) error {
	return s.post(ctx, "/vectors/delete", deleteRequest{DeleteAll: true, Namespace: s.namespace}, nil)
}

func (s *Storage) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("pinecone POST %s failed: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to parse pinecone response: %w", err)
		}
	}
	return nil
}
