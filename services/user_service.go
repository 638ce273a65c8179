package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Amit43verma/alumni-portal/apperrors"
	"github.com/Amit43verma/alumni-portal/models"
	"github.com/Amit43verma/alumni-portal/repository"
)

type UserService struct {
	users repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{users: userRepo}
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err == repository.ErrNotFound {
		return nil, apperrors.E(apperrors.NotFound, "User not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	return user, nil
}

// Search lists users by name prefix/substring for the member picker.
func (s *UserService) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	users, err := s.users.Search(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "Server error", err)
	}
	return users, nil
}
