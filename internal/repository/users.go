package repository

import (
	"context"
	"errors"
	"sync"

	"finchat/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the ordered identity store. It does not enforce
// username uniqueness; callers check with FindByUsername first.
type UserRepository interface {
	Append(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type memoryUserRepository struct {
	mu     sync.RWMutex
	users  []models.User
	nextID int64
}

// NewMemoryUserRepository returns a process-local store. Records are lost on restart.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{nextID: 1}
}

func (r *memoryUserRepository) Append(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = r.nextID
	r.nextID++
	r.users = append(r.users, *user)
	return nil
}

func (r *memoryUserRepository) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.users {
		if r.users[i].Username == username {
			user := r.users[i]
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}
