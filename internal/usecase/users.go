package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskgold/engine/internal/models"
	"github.com/taskgold/engine/internal/storage"
)

type UserStorage interface {
	GetUser(ctx context.Context, userID int64) (models.User, error)
	CreateUser(ctx context.Context, user models.User) error
}

type UserService struct {
	storage UserStorage
}

func NewUserService(storage UserStorage) *UserService {
	return &UserService{storage: storage}
}

// GetOrCreate registers the user on first contact. The referrer id is
// captured only at creation and ignored for existing users, which makes it
// immutable for the user's lifetime. Self-referrals are dropped.
func (s *UserService) GetOrCreate(ctx context.Context, userID int64, username string, referrerID int64) (models.User, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if referrerID == userID {
		referrerID = 0
	}
	user = models.User{
		ID:         userID,
		Username:   username,
		ReferrerID: referrerID,
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return s.storage.GetUser(ctx, userID)
}
