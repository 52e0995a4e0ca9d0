package repomanager

import (
	"context"
	"database/sql"

	"github.com/quietpage/quietpage/internal/dbx"
	"github.com/quietpage/quietpage/internal/server/repositories/entries"
	"github.com/quietpage/quietpage/internal/server/repositories/goals"
	"github.com/quietpage/quietpage/internal/server/repositories/keyrings"
	"github.com/quietpage/quietpage/internal/server/repositories/professionals"
	"github.com/quietpage/quietpage/internal/server/repositories/prompts"
	"github.com/quietpage/quietpage/internal/server/repositories/refreshtokens"
	"github.com/quietpage/quietpage/internal/server/repositories/shares"
	"github.com/quietpage/quietpage/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Keyrings(db dbx.DBTX) keyrings.Repository
	Entries(db dbx.DBTX) entries.Repository
	Goals(db dbx.DBTX) goals.Repository
	Shares(db dbx.DBTX) shares.Repository
	Professionals(db dbx.DBTX) professionals.Repository
	Prompts(db dbx.DBTX) prompts.Repository
}
