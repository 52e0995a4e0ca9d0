package keyrings

import (
	"context"

	"github.com/quietpage/quietpage/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, userID string) (*models.Keyring, error)
	Put(ctx context.Context, rec *models.Keyring) error
}
