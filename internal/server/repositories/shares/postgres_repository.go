package shares

import (
	"context"
	"fmt"

	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/dbx"
	"github.com/quietpage/quietpage/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, share *models.Share) error {
	query :=
		`INSERT INTO shares (entry_id, owner_user_id, professional_id, envelope, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (entry_id, professional_id) DO UPDATE SET
			envelope = excluded.envelope,
			updated_at = now()
		 `

	_, err := r.db.ExecContext(ctx, query, share.EntryID, share.OwnerUserID, share.ProfessionalID, share.Envelope)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// Delete removes a share row. A missing row resolves to ErrEntryNotFound so
// revoking someone else's share looks identical to revoking a nonexistent
// one.
func (r *PostgresRepository) Delete(ctx context.Context, entryID, ownerUserID, professionalID string) error {
	query :=
		`DELETE FROM shares
		 WHERE entry_id = $1 AND owner_user_id = $2 AND professional_id = $3
		 `

	res, err := r.db.ExecContext(ctx, query, entryID, ownerUserID, professionalID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrEntryNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]models.Share, error) {
	query :=
		`SELECT entry_id, owner_user_id, professional_id, envelope, updated_at FROM shares
		 WHERE owner_user_id = $1
		 ORDER BY updated_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Share
	for rows.Next() {
		s := models.Share{}
		if err := rows.Scan(&s.EntryID, &s.OwnerUserID, &s.ProfessionalID, &s.Envelope, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) InsertAudit(ctx context.Context, audit *models.ShareAudit) error {
	query :=
		`INSERT INTO share_audit (entry_id, owner_user_id, professional_id, action)
		 VALUES ($1, $2, $3, $4)
		 `

	_, err := r.db.ExecContext(ctx, query, audit.EntryID, audit.OwnerUserID, audit.ProfessionalID, audit.Action)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
