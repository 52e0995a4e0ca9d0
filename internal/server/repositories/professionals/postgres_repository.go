package professionals

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

func (r *PostgresRepository) ListLinked(ctx context.Context, userID string) ([]models.Professional, error) {
	query :=
		`SELECT p.id, p.display_name, p.public_key, p.active FROM professionals p
		 JOIN professional_links l ON l.professional_id = p.id
		 WHERE l.user_id = $1 AND l.active AND p.active
		 ORDER BY p.display_name
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Professional
	for rows.Next() {
		p := models.Professional{}
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.PublicKey, &p.Active); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetPublicKey(ctx context.Context, professionalID string) ([]byte, error) {
	query := `SELECT public_key FROM professionals WHERE id = $1 AND active`

	var key []byte
	err := r.db.QueryRowContext(ctx, query, professionalID).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrKeyNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

// IsLinked reports whether userID has an active link to an active
// professional.
func (r *PostgresRepository) IsLinked(ctx context.Context, userID, professionalID string) (bool, error) {
	query :=
		`SELECT 1 FROM professional_links l
		 JOIN professionals p ON p.id = l.professional_id
		 WHERE l.user_id = $1 AND l.professional_id = $2 AND l.active AND p.active
		 `

	var one int
	err := r.db.QueryRowContext(ctx, query, userID, professionalID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return true, nil
}
