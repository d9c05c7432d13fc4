package services

import (
	"context"

	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/Dias221467/Chat_Manager/internal/repository"
	"github.com/Dias221467/Chat_Manager/internal/validation"
	"github.com/sirupsen/logrus"
)

// UserService reads the user directory.
type UserService struct {
	repo repository.UserStore
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo repository.UserStore) *UserService {
	return &UserService{
		repo: repo,
	}
}

// GetUser fetches the profile of an account.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("userID", id).Debug("User lookup failed")
		return nil, err
	}
	return user, nil
}

// GetUserByUsername resolves a username as typed by a user.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repo.GetUserByUsername(ctx, validation.NormalizeUsername(username))
}
