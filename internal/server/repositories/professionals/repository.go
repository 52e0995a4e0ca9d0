package professionals

import (
	"context"

	"github.com/quietpage/quietpage/internal/server/models"
)

type Repository interface {
	ListLinked(ctx context.Context, userID string) ([]models.Professional, error)
	GetPublicKey(ctx context.Context, professionalID string) ([]byte, error)
	IsLinked(ctx context.Context, userID, professionalID string) (bool, error)
}
