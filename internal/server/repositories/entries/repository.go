package entries

import (
	"context"

	"github.com/quietpage/quietpage/internal/server/models"
)

type Repository interface {
	GetByDate(ctx context.Context, userID, date string) (*models.Entry, error)
	GetByID(ctx context.Context, userID, entryID string) (*models.Entry, error)
	Upsert(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	ListRange(ctx context.Context, userID, from, to string) ([]models.Entry, error)
}
