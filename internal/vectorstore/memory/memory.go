// Package memory is an in-process vector store using brute-force cosine similarity.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"finchat/internal/vectorstore"
)

// Storage keeps records in insertion order; upserting an existing ID replaces it in place.
type Storage struct {
	mu      sync.RWMutex
	index   map[string]int
	records []vectorstore.Record
}

func NewStorage() *Storage {
	return &Storage{index: make(map[string]int)}
}

func (s *Storage) Upsert(_ context.Context, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch first so a mismatch leaves the index untouched.
	dims := -1
	if len(s.records) > 0 {
		dims = len(s.records[0].Vector)
	} else if len(records) > 0 {
		dims = len(records[0].Vector)
	}
	for _, r := range records {
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: record %s has %d, index has %d",
				vectorstore.ErrDimensionMismatch, r.ID, len(r.Vector), dims)
		}
	}

	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		if i, ok := s.index[r.ID]; ok {
			s.records[i] = r
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

func (s *Storage) Query(_ context.Context, vector []float32, topK int) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.records) == 0 {
		return []vectorstore.Match{}, nil
	}
	if len(vector) != len(s.records[0].Vector) {
		return nil, fmt.Errorf("%w: query has %d, index has %d",
			vectorstore.ErrDimensionMismatch, len(vector), len(s.records[0].Vector))
	}

	matches := make([]vectorstore.Match, len(s.records))
	for i, r := range s.records {
		matches[i] = vectorstore.Match{ID: r.ID, Score: cosine(vector, r.Vector), Text: r.Text}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = make(map[string]int)
	s.records = nil
	return nil
}

// Len reports how many records are stored.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
