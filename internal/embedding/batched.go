package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Batched splits large inputs into fixed-size batches and embeds up to
// concurrency batches at a time. Results are placed by input index.
type Batched struct {
	Embedder
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

func NewBatched(inner Embedder, batchSize, concurrency int, logger *zap.Logger) *Batched {
	if batchSize <= 0 {
		batchSize = 32
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Batched{
		Embedder:    inner,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (b *Batched) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))

		g.Go(func() error {
			vectors, err := b.Embedder.Embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			if len(vectors) != end-start {
				return fmt.Errorf("batch %d-%d: got %d vectors for %d texts", start, end, len(vectors), end-start)
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.logger.Debug("Embedded texts",
		zap.Int("count", len(texts)),
		zap.Int("batch_size", b.batchSize),
		zap.Int("concurrency", b.concurrency))

	return out, nil
}

// EmbedQuery bypasses batching and keeps the inner embedder's query path.
func (b *Batched) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return EmbedQuery(ctx, b.Embedder, text)
}
