package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/timgst1/aegis/internal/audit"
	"github.com/timgst1/aegis/internal/authn"
	"github.com/timgst1/aegis/internal/authz"
	"github.com/timgst1/aegis/internal/gateway"
	"github.com/timgst1/aegis/internal/httpapi"
	"github.com/timgst1/aegis/internal/httpapi/middleware"
	"github.com/timgst1/aegis/internal/keystore"
	"github.com/timgst1/aegis/internal/policy"
	"github.com/timgst1/aegis/internal/storage/sqlite"
)

type App struct {
	Handler       http.Handler
	PolicyManager *policy.Manager

	closers []func() error
}

// Build wires keystore → verifier → store → engine → gateway → router.
// Key material problems are startup-fatal: the process must not serve
// if it cannot verify anything.
func Build(cfg Config, log *slog.Logger) (*App, error) {
	if cfg.CACertPath == "" {
		return nil, fmt.Errorf("CA_CERT_PATH is required")
	}

	keys, err := keystore.LoadFile(cfg.CACertPath)
	if err != nil {
		return nil, fmt.Errorf("load key material: %w", err)
	}

	verifier := authn.NewVerifier(keys, authn.Options{
		Audience: cfg.TokenAudience,
		Issuer:   cfg.TokenIssuer,
	})

	store := policy.NewStore()
	engine := authz.NewEngine(store)
	gw := gateway.New(verifier, engine, log)

	app := &App{}

	if cfg.PolicyPath != "" {
		app.PolicyManager = policy.NewManager(cfg.PolicyPath, store)
	}

	var recorder audit.Recorder = audit.Nop{}
	if cfg.AuditDBPath != "" {
		db, err := sqlite.Open(cfg.AuditDBPath)
		if err != nil {
			return nil, fmt.Errorf("open audit db: %w", err)
		}
		if err := sqlite.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate audit db: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		recorder = audit.NewSQLiteRecorder(db)
	}

	var admin *middleware.AdminTokens
	if cfg.AdminTokenPath != "" {
		admin, err = middleware.LoadAdminTokens(cfg.AdminTokenPath)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("load admin tokens: %w", err)
		}
	}

	app.Handler = httpapi.NewRouter(httpapi.Deps{
		Gateway: gw,
		Store:   store,
		Audit:   recorder,
		Admin:   admin,
		Log:     log,
	})

	return app, nil
}

// Start begins policy hot reload, when a policy file is configured.
func (a *App) Start(ctx context.Context) error {
	if a.PolicyManager == nil {
		return nil
	}
	return a.PolicyManager.Start(ctx)
}

func (a *App) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

func BuildServer(cfg Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
