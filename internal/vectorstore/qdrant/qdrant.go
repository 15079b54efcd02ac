// Package qdrant is a minimal REST client to Qdrant.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"finchat/internal/vectorstore"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Qdrant only accepts integer or UUID point ids, so record keys are mapped
// through a name-based UUID and kept in the payload.
var pointNamespace = uuid.MustParse("6f1c3a52-8d0e-4a7b-9c51-2f4e7d9b0a13")

// Storage assumes cosine distance and creates the collection on first upsert.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     *zap.Logger

	mu      sync.Mutex
	ensured bool
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float32        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func NewStorage(cfg Config, logger *zap.Logger) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// PointID is the UUID under which a record key is stored.
func PointID(key string) string {
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

func (s *Storage) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(records[0].Vector)); err != nil {
		return err
	}

	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{
			ID:     PointID(r.ID),
			Vector: r.Vector,
			Payload: map[string]any{
				"key":  r.ID,
				"text": r.Text,
			},
		}
	}

	_, err := s.do(ctx, http.MethodPut, s.collectionPath()+"/points?wait=true", map[string]any{"points": points}, nil)
	return err
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]vectorstore.Match, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}

	var resp searchResponse
	if _, err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]vectorstore.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := vectorstore.Match{Score: r.Score}
		if v, ok := r.Payload["key"].(string); ok {
			m.ID = v
		} else {
			m.ID = fmt.Sprint(r.ID)
		}
		if v, ok := r.Payload["text"].(string); ok {
			m.Text = v
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Clear drops the collection; the next upsert recreates it.
func (s *Storage) Clear(ctx context.Context) error {
	status, err := s.do(ctx, http.MethodDelete, s.collectionPath(), nil, nil)
	if err != nil && status != http.StatusNotFound {
		return err
	}

	s.mu.Lock()
	s.ensured = false
	s.mu.Unlock()
	return nil
}

func (s *Storage) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	status, err := s.do(ctx, http.MethodGet, s.collectionPath(), nil, nil)
	switch {
	case err == nil:
	case status == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		if _, err := s.do(ctx, http.MethodPut, s.collectionPath(), body, nil); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
		}
		s.logger.Info("Qdrant collection created",
			zap.String("collection", s.collection),
			zap.Int("dimension", dimension))
	default:
		return err
	}

	s.ensured = true
	return nil
}

func (s *Storage) collectionPath() string {
	return "/collections/" + s.collection
}

// do returns the HTTP status alongside any error so callers can react to 404s.
func (s *Storage) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
