// Package cli implements the interactive Quietpage client: a small REPL over
// the journal core. The App is the composition root — every collaborator is
// built once here and passed by reference.
package cli

import (
	"bufio"
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/quietpage/quietpage/internal/client/config"
	"github.com/quietpage/quietpage/internal/client/drafts"
	"github.com/quietpage/quietpage/internal/client/keyring"
	"github.com/quietpage/quietpage/internal/client/localdb"
	"github.com/quietpage/quietpage/internal/client/nav"
	"github.com/quietpage/quietpage/internal/client/prompts"
	"github.com/quietpage/quietpage/internal/client/remote"
	"github.com/quietpage/quietpage/internal/client/services"
	"github.com/quietpage/quietpage/internal/client/session"
	"github.com/quietpage/quietpage/internal/client/share"
	"github.com/quietpage/quietpage/internal/filex"
	"github.com/quietpage/quietpage/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// authService is the slice of services.AuthService the commands use. Tests
// substitute a fake.
type authService interface {
	Register(ctx context.Context, username string, password []byte) error
	OnlineLogin(ctx context.Context, username string, password []byte) error
	OfflineLogin(ctx context.Context, username string, password []byte) error
	Ping(ctx context.Context) error
	Logout()
	ClearOfflineData(ctx context.Context) error
}

type App struct {
	config      *config.Config
	client      remote.Store
	authService authService
	keyring     *keyring.Manager
	session     *session.Engine
	shares      *share.Service
	picker      *prompts.Picker
	nav         *nav.Navigator
	log         logging.Logger
	userName    string
	Mode        Mode
	reader      *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	dbPath, err := resolveDBPath(c.LocalDBPath)
	if err != nil {
		return nil, err
	}

	db, err := localdb.InitDatabase(ctx, dbPath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	client := remote.NewHTTPClient(c.ServerEndpointAddr)
	keys := keyring.NewManager(client, logger)
	draftCache := drafts.NewCache(drafts.NewSQLiteRepository(db), keys, logger)
	engine := session.NewEngine(client, draftCache, keys, session.NewClock(), logger)
	shareSvc := share.NewService(client, client, keys, logger)

	return &App{
		config:      c,
		client:      client,
		authService: services.NewAuthService(client, db),
		keyring:     keys,
		session:     engine,
		shares:      shareSvc,
		picker:      prompts.NewPicker(client),
		nav:         nav.NewNavigator(&consoleRouter{}, time.Now().UTC(), nil),
		log:         logger,
		reader:      bufio.NewReader(os.Stdin),
	}, nil
}

// resolveDBPath keeps explicit paths as given; a bare filename lands in the
// per-user data directory.
func resolveDBPath(p string) (string, error) {
	if filepath.Dir(p) != "." {
		return p, nil
	}
	dir, err := filex.EnsureDataDir("")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		// Flush anything still pending before the process exits.
		_ = a.session.Close(ctx)
	}()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.authService.Ping(ctx)
			cancel()

			if err != nil {
				if a.Mode == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else {
				if a.Mode != ModeOnline {
					a.setMode(ModeOnline)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// consoleRouter is the CLI's side-effect-free Router: the REPL prints the
// page it lands on instead of driving a UI, and there is no incoming link.
type consoleRouter struct{}

func (r *consoleRouter) NavigateToDate(date string)  {}
func (r *consoleRouter) NavigateToIndex(i int)       {}
func (r *consoleRouter) ReadDeepLink() *nav.DeepLink { return nil }
