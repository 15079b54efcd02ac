package repository

import (
	"context"
	"sync"

	"finchat/internal/models"
)

// HistoryRepository keeps the answered questions of each user.
type HistoryRepository interface {
	Add(ctx context.Context, username string, exchange models.Exchange) error
	List(ctx context.Context, username string) ([]models.Exchange, error)
}

type memoryHistoryRepository struct {
	mu    sync.Mutex
	limit int
	byKey map[string][]models.Exchange
}

// NewMemoryHistoryRepository keeps at most limit exchanges per user,
// dropping the oldest. A non-positive limit keeps everything.
func NewMemoryHistoryRepository(limit int) HistoryRepository {
	return &memoryHistoryRepository{
		limit: limit,
		byKey: make(map[string][]models.Exchange),
	}
}

func (r *memoryHistoryRepository) Add(_ context.Context, username string, exchange models.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.byKey[username], exchange)
	if r.limit > 0 && len(list) > r.limit {
		list = append([]models.Exchange(nil), list[len(list)-r.limit:]...)
	}
	r.byKey[username] = list
	return nil
}

// List returns a copy, oldest first. Unknown users get an empty, non-nil slice.
func (r *memoryHistoryRepository) List(_ context.Context, username string) ([]models.Exchange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Exchange, len(r.byKey[username]))
	copy(out, r.byKey[username])
	return out, nil
}
