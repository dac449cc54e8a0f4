package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/toychat/internal/config"
	"github.com/vovakirdan/toychat/internal/core"
	"github.com/vovakirdan/toychat/internal/history"
	"github.com/vovakirdan/toychat/internal/store"
	"github.com/vovakirdan/toychat/internal/store/badger"
	"github.com/vovakirdan/toychat/internal/store/memory"
	"github.com/vovakirdan/toychat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/toychat/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("store initialized")

	for _, room := range cfg.SeedRooms {
		if err := st.EnsureRoom(ctx, room); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed room %s: %w", room, err)
		}
	}
	if len(cfg.SeedRooms) > 0 {
		logger.Info().Strs("rooms", cfg.SeedRooms).Msg("seed rooms ensured")
	}

	hub := core.NewHub(history.New(st, cfg.HistoryLimit, logger), logger, core.WithDrainTimeout(cfg.ShutdownTimeout))
	server := transporthttp.NewServer(hub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	case config.DriverBadger:
		return badger.New(cfg.BadgerDir)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	hubDone := make(chan struct{})

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go func() {
		a.hub.Run(hubCtx)
		close(hubDone)
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		stopHub()
		<-hubDone
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)

		// the hub drains accepted messages, bounded by shutdown_timeout,
		// before the store is closed
		<-hubDone
		a.cleanup()
		if err != nil {
			return err
		}
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
