package goals

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

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]models.Goal, error) {
	query :=
		`SELECT id, user_id, ciphertext, nonce, aad, created_at, updated_at FROM goals
		 WHERE user_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Goal
	for rows.Next() {
		g := models.Goal{}
		if err := rows.Scan(&g.ID, &g.UserID, &g.Ciphertext, &g.Nonce, &g.AAD, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Upsert inserts a new goal when ID is empty, otherwise inserts-or-updates
// the row under that ID. Clients mint goal IDs so they can upsert while
// offline; touching another user's goal resolves to ErrGoalNotFound.
func (r *PostgresRepository) Upsert(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	if goal.ID == "" {
		query :=
			`INSERT INTO goals (user_id, ciphertext, nonce, aad)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at, updated_at
			 `
		err := r.db.QueryRowContext(ctx, query, goal.UserID, goal.Ciphertext, goal.Nonce, goal.AAD).
			Scan(&goal.ID, &goal.CreatedAt, &goal.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		return goal, nil
	}

	query :=
		`INSERT INTO goals (id, user_id, ciphertext, nonce, aad)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET ciphertext = EXCLUDED.ciphertext, nonce = EXCLUDED.nonce,
		     aad = EXCLUDED.aad, updated_at = now()
		 WHERE goals.user_id = $2
		 RETURNING created_at, updated_at
		 `
	err := r.db.QueryRowContext(ctx, query, goal.ID, goal.UserID, goal.Ciphertext, goal.Nonce, goal.AAD).
		Scan(&goal.CreatedAt, &goal.UpdatedAt)
	if err != nil {
		return nil, common.ErrGoalNotFound
	}
	return goal, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, goalID string) error {
	query := `DELETE FROM goals WHERE user_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, userID, goalID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrGoalNotFound
	}
	return nil
}

// Link relates a goal to an entry. Both rows must belong to userID; the
// subqueries make foreign ownership indistinguishable from absence.
func (r *PostgresRepository) Link(ctx context.Context, userID, goalID, entryID string) error {
	query :=
		`INSERT INTO goal_entries (goal_id, entry_id)
		 SELECT g.id, e.id FROM goals g, entries e
		 WHERE g.id = $2 AND g.user_id = $1 AND e.id = $3 AND e.user_id = $1
		 ON CONFLICT DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, userID, goalID, entryID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either an existing link (fine) or a missing/foreign goal or entry.
		if _, gerr := r.goalExists(ctx, userID, goalID); gerr != nil {
			return gerr
		}
		if eerr := r.entryExists(ctx, userID, entryID); eerr != nil {
			return eerr
		}
	}
	return nil
}

func (r *PostgresRepository) Unlink(ctx context.Context, userID, goalID, entryID string) error {
	query :=
		`DELETE FROM goal_entries ge
		 USING goals g
		 WHERE ge.goal_id = g.id AND g.user_id = $1 AND ge.goal_id = $2 AND ge.entry_id = $3
		 `

	_, err := r.db.ExecContext(ctx, query, userID, goalID, entryID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListLinks returns entryID → linked goal IDs for all of the user's entries.
func (r *PostgresRepository) ListLinks(ctx context.Context, userID string) (map[string][]string, error) {
	query :=
		`SELECT ge.entry_id, ge.goal_id FROM goal_entries ge
		 JOIN goals g ON g.id = ge.goal_id
		 WHERE g.user_id = $1
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var entryID, goalID string
		if err := rows.Scan(&entryID, &goalID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out[entryID] = append(out[entryID], goalID)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) goalExists(ctx context.Context, userID, goalID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM goals WHERE user_id = $1 AND id = $2`, userID, goalID).Scan(&one)
	if err != nil {
		return false, common.ErrGoalNotFound
	}
	return true, nil
}

func (r *PostgresRepository) entryExists(ctx context.Context, userID, entryID string) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM entries WHERE user_id = $1 AND id = $2`, userID, entryID).Scan(&one)
	if err != nil {
		return common.ErrEntryNotFound
	}
	return nil
}
