package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/liveclass/liveclass-server/internal/auth"
	"github.com/liveclass/liveclass-server/internal/config"
	"github.com/liveclass/liveclass-server/internal/core"
	"github.com/liveclass/liveclass-server/internal/meeting"
	"github.com/liveclass/liveclass-server/internal/meeting/livekit"
	"github.com/liveclass/liveclass-server/internal/meeting/zoom"
	"github.com/liveclass/liveclass-server/internal/session"
	"github.com/liveclass/liveclass-server/internal/store"
	"github.com/liveclass/liveclass-server/internal/store/sqlite"
	transporthttp "github.com/liveclass/liveclass-server/internal/transport/http"
)

// App wires together the store, room hub, session controller and transport.
type App struct {
	server          *stdhttp.Server
	reconciler      *session.Reconciler
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with the provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	provider, err := newProvider(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	logger.Info().Str("provider", cfg.Provider).Msg("meeting provider configured")

	verifier := auth.NewVerifier(&auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      24 * time.Hour,
	})

	hub := core.NewHub(st, core.NewRegistry(), logger, cfg.HistoryLimit)
	controller := session.NewController(st, provider, logger, cfg.Zoom.Timeout)
	reconciler := session.NewReconciler(controller, cfg.ReconcileInterval, logger)
	server := transporthttp.NewServer(hub, controller, st, verifier, *cfg, logger)

	return &App{
		server:          server,
		reconciler:      reconciler,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

func newProvider(cfg *config.Config) (meeting.Provider, error) {
	switch cfg.Provider {
	case "zoom":
		return zoom.New(cfg.Zoom.AccountID, cfg.Zoom.ClientID, cfg.Zoom.ClientSecret,
			cfg.Zoom.BaseURL, cfg.Zoom.OAuthURL, cfg.Zoom.Timeout), nil
	case "livekit":
		return livekit.New(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.WSURL), nil
	default:
		return nil, fmt.Errorf("unknown meeting provider %q", cfg.Provider)
	}
}

// Run starts the HTTP server and the session reconciler and blocks until
// context cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.reconciler.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
