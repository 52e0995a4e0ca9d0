// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/quietpage/quietpage/internal/dbx"
	"github.com/quietpage/quietpage/internal/server/migrations"
	"github.com/quietpage/quietpage/internal/server/repositories/entries"
	"github.com/quietpage/quietpage/internal/server/repositories/goals"
	"github.com/quietpage/quietpage/internal/server/repositories/keyrings"
	"github.com/quietpage/quietpage/internal/server/repositories/professionals"
	"github.com/quietpage/quietpage/internal/server/repositories/prompts"
	"github.com/quietpage/quietpage/internal/server/repositories/refreshtokens"
	"github.com/quietpage/quietpage/internal/server/repositories/shares"
	"github.com/quietpage/quietpage/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Keyrings(db dbx.DBTX) keyrings.Repository {
	return keyrings.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Entries(db dbx.DBTX) entries.Repository {
	return entries.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Goals(db dbx.DBTX) goals.Repository {
	return goals.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Shares(db dbx.DBTX) shares.Repository {
	return shares.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Professionals(db dbx.DBTX) professionals.Repository {
	return professionals.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Prompts(db dbx.DBTX) prompts.Repository {
	return prompts.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

var _ RepositoryManager = (*PostgresRepositoryManager)(nil)
