// Package gemini embeds text with Google's Gemini embedding models.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps a genai embedding model.
type Client struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	queryModel *genai.EmbeddingModel
	modelName  string
	dimensions int
	logger     *zap.Logger
}

// Config for Gemini embeddings
type Config struct {
	APIKey     string
	ModelName  string // Default: "text-embedding-004"
	Dimensions int    // Expected vector length, checked on every response
}

// NewClient creates a new Gemini embeddings client
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.EmbeddingModel(cfg.ModelName)
	model.TaskType = genai.TaskTypeRetrievalDocument
	queryModel := client.EmbeddingModel(cfg.ModelName)
	queryModel.TaskType = genai.TaskTypeRetrievalQuery

	logger.Info("Gemini embedding client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("dimensions", cfg.Dimensions))

	return &Client{
		client:     client,
		model:      model,
		queryModel: queryModel,
		modelName:  cfg.ModelName,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

func (c *Client) Model() string   { return c.modelName }
func (c *Client) Dimensions() int { return c.dimensions }

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batch := c.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := c.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		v, err := checkVector(e.Values, c.dimensions)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		vectors[i] = v
	}

	return vectors, nil
}

// EmbedQuery embeds a search question with the retrieval-query task type.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.queryModel.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("empty query embedding")
	}
	return checkVector(resp.Embedding.Values, c.dimensions)
}

func checkVector(values []float32, dimensions int) ([]float32, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	if dimensions > 0 && len(values) != dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(values), dimensions)
	}
	return values, nil
}
