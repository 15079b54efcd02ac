package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finchat/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type sqlUserRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSQLUserRepository stores users in a users table reachable through db.
// Works with both the sqlite and postgres drivers.
func NewSQLUserRepository(db *sqlx.DB, logger *zap.Logger) UserRepository {
	return &sqlUserRepository{db: db, logger: logger}
}

func (r *sqlUserRepository) Append(ctx context.Context, user *models.User) error {
	query := r.db.Rebind(`INSERT INTO users (username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query, user.Username, user.PasswordHash, user.CreatedAt.UTC(), user.UpdatedAt.UTC()).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	r.logger.Debug("User stored", zap.String("username", user.Username), zap.Int64("id", user.ID))
	return nil
}

func (r *sqlUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = ? ORDER BY id LIMIT 1`)
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}
