package prompts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

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

const promptColumns = `id, locale, scope, text, tags, weight, enabled, start_at, end_at, created_at, updated_at`

func scanPrompt(row interface{ Scan(...any) error }) (*models.Prompt, error) {
	p := &models.Prompt{}
	var tags []byte
	err := row.Scan(&p.ID, &p.Locale, &p.Scope, &p.Text, &tags, &p.Weight, &p.Enabled,
		&p.StartAt, &p.EndAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("bad tags json: %w", err)
		}
	}
	return p, nil
}

// List applies the filter as SQL predicates; the tags predicate requires all
// requested tags to be present.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]models.Prompt, error) {
	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if !f.IncludeDisabled {
		where = append(where, "enabled")
	}
	if f.Locale != "" {
		where = append(where, "locale = "+arg(f.Locale))
	}
	if f.Scope != "" {
		where = append(where, "scope = "+arg(f.Scope))
	}
	if f.ActiveAt != nil {
		t := arg(*f.ActiveAt)
		where = append(where, "(start_at IS NULL OR start_at <= "+t+")")
		where = append(where, "(end_at IS NULL OR end_at >= "+t+")")
	}
	for _, tag := range f.Tags {
		b, err := json.Marshal([]string{tag})
		if err != nil {
			return nil, err
		}
		where = append(where, "tags @> "+arg(string(b))+"::jsonb")
	}

	query := `SELECT ` + promptColumns + ` FROM prompts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = $1`

	p, err := scanPrompt(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrPromptNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Prompt) (*models.Prompt, error) {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO prompts (locale, scope, text, tags, weight, enabled, start_at, end_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		p.Locale, p.Scope, p.Text, string(tags), p.Weight, p.Enabled, p.StartAt, p.EndAt).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Prompt) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return err
	}

	query :=
		`UPDATE prompts SET locale = $2, scope = $3, text = $4, tags = $5,
			weight = $6, enabled = $7, start_at = $8, end_at = $9, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.Locale, p.Scope, p.Text, string(tags), p.Weight, p.Enabled, p.StartAt, p.EndAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrPromptNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM prompts WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrPromptNotFound
	}
	return nil
}
