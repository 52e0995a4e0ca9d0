package users

import (
	"context"

	"github.com/quietpage/quietpage/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}
