package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quietpage/quietpage/internal/logging"
	"github.com/quietpage/quietpage/internal/server/models"
	"github.com/quietpage/quietpage/internal/server/repositories/prompts"
	"github.com/quietpage/quietpage/internal/server/repositories/repomanager"
	"github.com/redis/go-redis/v9"
)

const promptCacheTTL = 5 * time.Minute

// PromptService serves the admin-curated coach prompt catalog. Listings are
// cached in Redis per filter; any write invalidates the whole prompt cache
// keyspace, which is cheap because the catalog is small.
type PromptService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       *redis.Client
	log         logging.Logger
}

// NewPromptService constructs a PromptService. cache may be nil, in which
// case every listing hits the database.
func NewPromptService(db *sql.DB, m repomanager.RepositoryManager, cache *redis.Client, log logging.Logger) *PromptService {
	return &PromptService{db: db, repomanager: m, cache: cache, log: log.With("component", "prompts")}
}

func (s *PromptService) List(ctx context.Context, f prompts.Filter) ([]models.Prompt, error) {
	key := cacheKey(f)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var out []models.Prompt
			if err := json.Unmarshal(cached, &out); err == nil {
				return out, nil
			}
		}
	}

	out, err := s.repomanager.Prompts(s.db).List(ctx, f)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if b, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, key, b, promptCacheTTL).Err(); err != nil {
				s.log.Warn(ctx, "prompt cache write failed", "error", err)
			}
		}
	}
	return out, nil
}

func (s *PromptService) Get(ctx context.Context, id string) (*models.Prompt, error) {
	return s.repomanager.Prompts(s.db).Get(ctx, id)
}

func (s *PromptService) Create(ctx context.Context, p *models.Prompt) (*models.Prompt, error) {
	out, err := s.repomanager.Prompts(s.db).Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return out, nil
}

func (s *PromptService) Update(ctx context.Context, p *models.Prompt) error {
	if err := s.repomanager.Prompts(s.db).Update(ctx, p); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *PromptService) Delete(ctx context.Context, id string) error {
	if err := s.repomanager.Prompts(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *PromptService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, "prompts:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.log.Warn(ctx, "prompt cache invalidation failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		s.log.Warn(ctx, "prompt cache scan failed", "error", err)
	}
}

func cacheKey(f prompts.Filter) string {
	tags := append([]string(nil), f.Tags...)
	sort.Strings(tags)
	at := ""
	if f.ActiveAt != nil {
		at = f.ActiveAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("prompts:%s:%s:%s:%s:%t", f.Locale, f.Scope, strings.Join(tags, ","), at, f.IncludeDisabled)
}
