package drafts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/quietpage/quietpage/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the draft row for date, or (nil, nil) when none exists.
func (r *SQLiteRepository) Get(ctx context.Context, date string) (*Row, error) {
	row := &Row{}
	err := r.db.QueryRowContext(ctx,
		`SELECT date, version, envelope, updated_at FROM drafts WHERE date = ?`, date).
		Scan(&row.Date, &row.Version, &row.Envelope, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft[%s]: %w", date, err)
	}
	return row, nil
}

// Put upserts the draft row for its date.
func (r *SQLiteRepository) Put(ctx context.Context, row *Row) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drafts (date, version, envelope, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			version = excluded.version,
			envelope = excluded.envelope,
			updated_at = excluded.updated_at
	`, row.Date, row.Version, row.Envelope, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put draft[%s]: %w", row.Date, err)
	}
	return nil
}

// Delete removes the draft row for date. Deleting a missing row is not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, date string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE date = ?`, date)
	if err != nil {
		return fmt.Errorf("failed to delete draft[%s]: %w", date, err)
	}
	return nil
}
