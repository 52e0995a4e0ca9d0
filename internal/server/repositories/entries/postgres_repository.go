package entries

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

const entryColumns = `id, user_id, to_char(entry_date, 'YYYY-MM-DD'), ciphertext, nonce, aad,
	word_count, mood, tz_at_entry, created_at, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (*models.Entry, error) {
	e := &models.Entry{}
	err := row.Scan(&e.ID, &e.UserID, &e.Date, &e.Ciphertext, &e.Nonce, &e.AAD,
		&e.WordCount, &e.Mood, &e.TZAtEntry, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByDate returns the user's entry for date. Rows owned by other users are
// invisible: the same ErrEntryNotFound as for a missing row.
func (r *PostgresRepository) GetByDate(ctx context.Context, userID, date string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id = $1 AND entry_date = $2`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, userID, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrEntryNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, entryID string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id = $1 AND id = $2`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, userID, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrEntryNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	query :=
		`INSERT INTO entries (user_id, entry_date, ciphertext, nonce, aad, word_count, mood, tz_at_entry)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, entry_date) DO UPDATE SET
			ciphertext = excluded.ciphertext,
			nonce = excluded.nonce,
			aad = excluded.aad,
			word_count = excluded.word_count,
			mood = excluded.mood,
			tz_at_entry = excluded.tz_at_entry,
			updated_at = now()
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		entry.UserID, entry.Date, entry.Ciphertext, entry.Nonce, entry.AAD,
		entry.WordCount, entry.Mood, entry.TZAtEntry).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

func (r *PostgresRepository) ListRange(ctx context.Context, userID, from, to string) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
		 WHERE user_id = $1 AND entry_date BETWEEN $2 AND $3
		 ORDER BY entry_date`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
