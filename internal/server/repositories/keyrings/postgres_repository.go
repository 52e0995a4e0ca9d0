package keyrings

import (
	"context"
	"database/sql"
	"errors"
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

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Keyring, error) {
	query :=
		`SELECT user_id, wrapped_master_key, salt, kdf_params, updated_at FROM keyrings
		 WHERE user_id = $1
		 `

	k := &models.Keyring{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&k.UserID, &k.WrappedMasterKey, &k.Salt, &k.KDFParams, &k.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return k, nil
}

func (r *PostgresRepository) Put(ctx context.Context, rec *models.Keyring) error {
	query :=
		`INSERT INTO keyrings (user_id, wrapped_master_key, salt, kdf_params, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (user_id) DO UPDATE SET
			wrapped_master_key = excluded.wrapped_master_key,
			salt = excluded.salt,
			kdf_params = excluded.kdf_params,
			updated_at = now()
		 `

	_, err := r.db.ExecContext(ctx, query, rec.UserID, rec.WrappedMasterKey, rec.Salt, rec.KDFParams)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
