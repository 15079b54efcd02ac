// Package vectorstore defines the similarity index used by the chat pipeline.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Record is one vector with its source text.
type Record struct {
	ID     string
	Vector []float32
	Text   string
}

// Match is a query hit, best first.
type Match struct {
	ID    string
	Score float32
	Text  string
}

// Store upserts records by ID and answers nearest-neighbour queries.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Clear(ctx context.Context) error
}

// ChunkID is the record key of the i-th chunk of a scrape.
func ChunkID(i int) string {
	return fmt.Sprintf("chunk-%d", i)
}
