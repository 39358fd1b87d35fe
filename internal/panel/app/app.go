package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/archivepanel/internal/tokenstore/sqlite"
	"github.com/aussiebroadwan/archivepanel/pkg/cryptox"
	"github.com/aussiebroadwan/archivepanel/pkg/panelsdk"
	"github.com/aussiebroadwan/archivepanel/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// tokenSealInfo binds the derived sealing key to the session store.
	tokenSealInfo = "archivepanel/session-token/v1"
)

// Application holds the wired panel core for one command invocation.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store   *sqlite.Store // nil in cookie mode
	session *panelsdk.Session
	client  *panelsdk.Client

	Auth    *panelsdk.AuthController
	Adapter *panelsdk.ResourceAdapter
	Metrics *panelsdk.Metrics
}

// New wires the logger, the session store and the SDK and restores a
// previously persisted session.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "panelctl",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initSession(ctx); err != nil {
		return nil, err
	}
	app.initSDK()

	return app, nil
}

func (app *Application) initSession(ctx context.Context) error {
	// Cookie sessions live in the process cookie jar only.
	if panelsdk.CredentialMode(app.cfg.CredentialMode) == panelsdk.CredentialCookie {
		app.session = panelsdk.NewSession(nil)
		return nil
	}

	sealer, err := app.sealer()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(app.cfg.TokenDatabaseFile), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	store, err := sqlite.NewStore(app.cfg.TokenDatabaseFile, sealer)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	if err := store.ApplyMigrations(); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to migrate session store: %w", err)
	}
	app.store = store
	app.session = panelsdk.NewSession(store)

	if err := app.session.Restore(ctx); err != nil {
		if !errors.Is(err, sqlite.ErrUnreadable) {
			_ = store.Close()
			return err
		}
		app.logger.Warn("discarding unreadable session, log in again", "error", err)
		if err := app.session.Clear(ctx); err != nil {
			app.logger.Warn("failed to discard session", "error", err)
		}
	}

	return nil
}

func (app *Application) sealer() (*cryptox.Sealer, error) {
	var material []byte
	if app.cfg.MasterKeyPath != "" {
		m, err := cryptox.EnsureKeyFile(app.cfg.MasterKeyPath)
		if err != nil {
			return nil, err
		}
		material = m
	} else {
		m, ephemeral, err := cryptox.LoadKeyMaterial("", MasterKeyEnv)
		if err != nil {
			return nil, err
		}
		if ephemeral {
			app.logger.Warn("no master key configured, the session will not outlive this process")
		}
		material = m
	}

	return cryptox.NewSealer(material, tokenSealInfo)
}

func (app *Application) initSDK() {
	app.client = panelsdk.New(app.cfg.BaseURL, app.session,
		panelsdk.WithTimeout(app.cfg.Timeout),
		panelsdk.WithCredentialMode(panelsdk.CredentialMode(app.cfg.CredentialMode)),
		panelsdk.WithAPIVariant(panelsdk.APIVariant(app.cfg.APIVariant)),
		panelsdk.WithRateLimit(app.cfg.RateLimit, app.cfg.RateBurst),
		panelsdk.WithHeader("User-Agent", "panelctl/"+BuildVersion),
		panelsdk.WithLogger(app.logger),
	)

	app.Auth = panelsdk.NewAuthController(app.client)
	app.Adapter = panelsdk.NewResourceAdapter(app.client)
	app.Metrics = panelsdk.NewMetrics(app.client)
}

// Config returns the configuration the application was built with.
func (app *Application) Config() Config { return app.cfg }

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Session returns the owned panel session.
func (app *Application) Session() *panelsdk.Session { return app.session }

// Client returns the SDK transport.
func (app *Application) Client() *panelsdk.Client { return app.client }

// SessionSavedAt reports when the persisted session token was last written.
// It is false in cookie mode and when no token is stored.
func (app *Application) SessionSavedAt(ctx context.Context) (time.Time, bool, error) {
	if app.store == nil {
		return time.Time{}, false, nil
	}
	if err := app.store.Ping(ctx); err != nil {
		return time.Time{}, false, fmt.Errorf("session store unavailable: %w", err)
	}
	return app.store.UpdatedAt(ctx, panelsdk.TokenKey)
}

// HandleError applies the session policy to a failed call: when the backend
// rejected the session it is logged out locally. It reports whether that
// happened.
func (app *Application) HandleError(ctx context.Context, err error) bool {
	if app.Auth.CheckError(err) != panelsdk.ActionLogout {
		return false
	}
	if lerr := app.Auth.Logout(ctx); lerr != nil {
		app.logger.Warn("failed to clear rejected session", "error", lerr)
	}
	return true
}

// Close releases the session store.
func (app *Application) Close() error {
	if app.store == nil {
		return nil
	}
	if err := app.store.Close(); err != nil {
		app.logger.Error("error closing session store", "error", err)
		return err
	}
	return nil
}
