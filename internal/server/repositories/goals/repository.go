package goals

import (
	"context"

	"github.com/quietpage/quietpage/internal/server/models"
)

type Repository interface {
	List(ctx context.Context, userID string) ([]models.Goal, error)
	Upsert(ctx context.Context, goal *models.Goal) (*models.Goal, error)
	Delete(ctx context.Context, userID, goalID string) error
	Link(ctx context.Context, userID, goalID, entryID string) error
	Unlink(ctx context.Context, userID, goalID, entryID string) error
	ListLinks(ctx context.Context, userID string) (map[string][]string, error)
}
