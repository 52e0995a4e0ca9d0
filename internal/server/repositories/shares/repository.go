package shares

import (
	"context"

	"github.com/quietpage/quietpage/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, share *models.Share) error
	Delete(ctx context.Context, entryID, ownerUserID, professionalID string) error
	ListByOwner(ctx context.Context, ownerUserID string) ([]models.Share, error)
	InsertAudit(ctx context.Context, audit *models.ShareAudit) error
}
