package services

import (
	"context"
	"database/sql"

	"github.com/quietpage/quietpage/internal/server/models"
	"github.com/quietpage/quietpage/internal/server/repositories/repomanager"
)

// GoalService stores encrypted goal records and their links to entries.
type GoalService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewGoalService(db *sql.DB, m repomanager.RepositoryManager) *GoalService {
	return &GoalService{db: db, repomanager: m}
}

func (s *GoalService) List(ctx context.Context, userID string) ([]models.Goal, error) {
	return s.repomanager.Goals(s.db).List(ctx, userID)
}

func (s *GoalService) Upsert(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	return s.repomanager.Goals(s.db).Upsert(ctx, goal)
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	return s.repomanager.Goals(s.db).Delete(ctx, userID, goalID)
}

func (s *GoalService) Link(ctx context.Context, userID, goalID, entryID string) error {
	return s.repomanager.Goals(s.db).Link(ctx, userID, goalID, entryID)
}

func (s *GoalService) Unlink(ctx context.Context, userID, goalID, entryID string) error {
	return s.repomanager.Goals(s.db).Unlink(ctx, userID, goalID, entryID)
}
