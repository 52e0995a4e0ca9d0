package prompts

import (
	"context"
	"time"

	"github.com/quietpage/quietpage/internal/server/models"
)

// Filter narrows a prompt listing. Zero values match everything.
type Filter struct {
	Locale          string
	Scope           string
	Tags            []string
	ActiveAt        *time.Time
	IncludeDisabled bool
}

type Repository interface {
	List(ctx context.Context, f Filter) ([]models.Prompt, error)
	Get(ctx context.Context, id string) (*models.Prompt, error)
	Create(ctx context.Context, p *models.Prompt) (*models.Prompt, error)
	Update(ctx context.Context, p *models.Prompt) error
	Delete(ctx context.Context, id string) error
}
