package services

import (
	"context"
	"database/sql"

	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/dbx"
	"github.com/quietpage/quietpage/internal/server/models"
	"github.com/quietpage/quietpage/internal/server/repositories/repomanager"
)

// Share audit actions.
const (
	AuditShared  = "shared"
	AuditRevoked = "revoked"
)

// ShareService grants and revokes per-entry access and serves the
// professional directory. The share row and its audit record are written in
// one transaction: a share is never committed without its trail.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager) *ShareService {
	return &ShareService{db: db, repomanager: m}
}

// Share verifies entry ownership and the active professional link, then
// upserts the share row and appends the shared audit entry atomically.
// Unowned entries resolve to ErrEntryNotFound; unlinked professionals to
// ErrProfessionalNotLinked.
func (s *ShareService) Share(ctx context.Context, ownerUserID, entryID, professionalID string, envelope []byte) error {
	if _, err := s.repomanager.Entries(s.db).GetByID(ctx, ownerUserID, entryID); err != nil {
		return err
	}

	linked, err := s.repomanager.Professionals(s.db).IsLinked(ctx, ownerUserID, professionalID)
	if err != nil {
		return err
	}
	if !linked {
		return common.ErrProfessionalNotLinked
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Shares(tx)
		share := &models.Share{
			EntryID:        entryID,
			OwnerUserID:    ownerUserID,
			ProfessionalID: professionalID,
			Envelope:       envelope,
		}
		if err := repo.Upsert(ctx, share); err != nil {
			return err
		}
		return repo.InsertAudit(ctx, &models.ShareAudit{
			EntryID:        entryID,
			OwnerUserID:    ownerUserID,
			ProfessionalID: professionalID,
			Action:         AuditShared,
		})
	})
}

// Revoke deletes the share row and appends the revoked audit entry
// atomically.
func (s *ShareService) Revoke(ctx context.Context, ownerUserID, entryID, professionalID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Shares(tx)
		if err := repo.Delete(ctx, entryID, ownerUserID, professionalID); err != nil {
			return err
		}
		return repo.InsertAudit(ctx, &models.ShareAudit{
			EntryID:        entryID,
			OwnerUserID:    ownerUserID,
			ProfessionalID: professionalID,
			Action:         AuditRevoked,
		})
	})
}

// ListShared returns every active share owned by the user.
func (s *ShareService) ListShared(ctx context.Context, ownerUserID string) ([]models.Share, error) {
	return s.repomanager.Shares(s.db).ListByOwner(ctx, ownerUserID)
}

// ListLinkedProfessionals serves the directory of share recipients.
func (s *ShareService) ListLinkedProfessionals(ctx context.Context, userID string) ([]models.Professional, error) {
	return s.repomanager.Professionals(s.db).ListLinked(ctx, userID)
}

// GetProfessionalPublicKey returns the recipient's X25519 public key, or
// common.ErrKeyNotFound.
func (s *ShareService) GetProfessionalPublicKey(ctx context.Context, professionalID string) ([]byte, error) {
	return s.repomanager.Professionals(s.db).GetPublicKey(ctx, professionalID)
}
