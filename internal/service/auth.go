package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"finchat/internal/auth"
	"finchat/internal/models"
	"finchat/internal/repository"

	"go.uber.org/zap"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 10
	minPasswordLength = 6
	maxPasswordLength = 20
	// bcrypt only hashes the first 72 bytes and rejects longer input.
	maxPasswordBytes = 72
)

// SeedUser is a pre-hashed account created at startup.
type SeedUser struct {
	Username     string
	PasswordHash string
}

type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time

	// Serializes the existence check and the append of Register.
	registerMu sync.Mutex
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates a user. The duplicate check runs before the length checks.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	exists, err := s.exists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserAlreadyExists
	}

	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return ErrInvalidUsername
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLength || n > maxPasswordLength || len(password) > maxPasswordBytes {
		return ErrInvalidPassword
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return err
	}

	now := s.now()
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Append(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("username", username))
	return nil
}

// Login verifies the password and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", time.Time{}, ErrUserNotFound
		}
		s.logger.Error("Failed to get user by username", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to retrieve user: %w", err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("Failed to verify password", zap.String("username", username), zap.Error(err))
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Generate(user.Username)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return "", time.Time{}, err
	}

	s.logger.Info("User logged in successfully.", zap.String("username", user.Username))
	return token, expiresAt, nil
}

// SeedUsers appends every seed whose username is not taken yet.
func (s *AuthService) SeedUsers(ctx context.Context, seeds []SeedUser) error {
	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	for _, seed := range seeds {
		exists, err := s.exists(ctx, seed.Username)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		now := s.now()
		user := &models.User{
			Username:     seed.Username,
			PasswordHash: seed.PasswordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Append(ctx, user); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", seed.Username, err)
		}
		s.logger.Info("Seed user created", zap.String("username", seed.Username))
	}
	return nil
}

func (s *AuthService) exists(ctx context.Context, username string) (bool, error) {
	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrUserNotFound):
		return false, nil
	default:
		s.logger.Error("Failed to look up user", zap.Error(err))
		return false, fmt.Errorf("failed to check existing users: %w", err)
	}
}
