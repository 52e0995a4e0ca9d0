// Package api exposes the server over a JSON HTTP surface. Handlers stay
// thin: they decode, delegate to a service, and encode. Error responses carry
// the sentinel message in an {"error": ...} body so clients can map them back
// with errors.Is.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/quietpage/quietpage/internal/logging"
	"github.com/quietpage/quietpage/internal/server/models"
	"github.com/quietpage/quietpage/internal/server/repositories/prompts"
	"github.com/quietpage/quietpage/internal/server/services"
)

// UserService is the slice of the user service the API needs.
type UserService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	GetSession(ctx context.Context, userID string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// EntryService covers keyring and encrypted entry storage.
type EntryService interface {
	GetKeyring(ctx context.Context, userID string) (*models.Keyring, error)
	PutKeyring(ctx context.Context, rec *models.Keyring) error
	GetByDate(ctx context.Context, userID, date string) (*models.Entry, error)
	Upsert(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	ListMeta(ctx context.Context, userID, from, to string) ([]services.EntryMeta, error)
}

// GoalService covers encrypted goal storage and goal-entry links.
type GoalService interface {
	List(ctx context.Context, userID string) ([]models.Goal, error)
	Upsert(ctx context.Context, goal *models.Goal) (*models.Goal, error)
	Delete(ctx context.Context, userID, goalID string) error
	Link(ctx context.Context, userID, goalID, entryID string) error
	Unlink(ctx context.Context, userID, goalID, entryID string) error
}

// ShareService covers share grants, revocations, and the professional
// directory.
type ShareService interface {
	Share(ctx context.Context, ownerUserID, entryID, professionalID string, envelope []byte) error
	Revoke(ctx context.Context, ownerUserID, entryID, professionalID string) error
	ListShared(ctx context.Context, ownerUserID string) ([]models.Share, error)
	ListLinkedProfessionals(ctx context.Context, userID string) ([]models.Professional, error)
	GetProfessionalPublicKey(ctx context.Context, professionalID string) ([]byte, error)
}

// PromptService covers the coach prompt catalog.
type PromptService interface {
	List(ctx context.Context, f prompts.Filter) ([]models.Prompt, error)
	Create(ctx context.Context, p *models.Prompt) (*models.Prompt, error)
	Update(ctx context.Context, p *models.Prompt) error
	Delete(ctx context.Context, id string) error
}

// Server wires the services into an http.Handler.
type Server struct {
	users     UserService
	entries   EntryService
	goals     GoalService
	shares    ShareService
	prompts   PromptService
	jwtSecret []byte
	log       logging.Logger
}

func NewServer(users UserService, entries EntryService, goals GoalService,
	shares ShareService, promptSvc PromptService, jwtSecret []byte, log logging.Logger) *Server {
	return &Server{
		users:     users,
		entries:   entries,
		goals:     goals,
		shares:    shares,
		prompts:   promptSvc,
		jwtSecret: jwtSecret,
		log:       log.With("component", "api"),
	}
}

// Routes builds the router. Everything under the authenticated group reads
// the user ID from the request context, never from the request body.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/auth/register", s.handleRegister)
	r.Get("/api/auth/salt", s.handleGetSalt)
	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/refresh", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/api/session", s.handleSession)
		r.Get("/api/profile", s.handleProfile)

		r.Get("/api/keyring", s.handleKeyringGet)
		r.Put("/api/keyring", s.handleKeyringPut)

		// {entryRef} is a calendar date for the entry row itself and an
		// entry ID for share operations.
		r.Route("/api/entries", func(r chi.Router) {
			r.Get("/", s.handleEntryListMeta)
			r.Route("/{entryRef}", func(r chi.Router) {
				r.Get("/", s.handleEntryGet)
				r.Put("/", s.handleEntryPut)
				r.Put("/shares/{professionalID}", s.handleShare)
				r.Delete("/shares/{professionalID}", s.handleRevoke)
			})
		})

		r.Route("/api/goals", func(r chi.Router) {
			r.Get("/", s.handleGoalList)
			r.Put("/{goalID}", s.handleGoalPut)
			r.Delete("/{goalID}", s.handleGoalDelete)
			r.Put("/{goalID}/entries/{entryID}", s.handleGoalLink)
			r.Delete("/{goalID}/entries/{entryID}", s.handleGoalUnlink)
		})

		r.Get("/api/shares", s.handleShareList)
		r.Get("/api/professionals", s.handleProfessionalList)
		r.Get("/api/professionals/{professionalID}/key", s.handleProfessionalKey)

		r.Get("/api/prompts", s.handlePromptList)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/api/prompts", s.handlePromptCreate)
			r.Put("/api/prompts/{promptID}", s.handlePromptUpdate)
			r.Delete("/api/prompts/{promptID}", s.handlePromptDelete)
		})
	})

	return r
}
