package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cargolinq/freight-auth-service/internal/config"
	"github.com/cargolinq/freight-auth-service/internal/observability"
	"github.com/cargolinq/freight-auth-service/internal/service"
)

// App bundles the running pieces of the service: the HTTP server, the
// background session reaper, and the observability runtime.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Reaper        *service.SessionReaper

	ShutdownTimeout time.Duration
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, reaper *service.SessionReaper) *App {
	return &App{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Observability:   runtime,
		Reaper:          reaper,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Run serves HTTP and the reaper loop until the context is cancelled, then
// drains in-flight requests and flushes telemetry.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		a.Reaper.Run(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("http shutdown failed", "error", err)
		}
		if err := a.Observability.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("observability shutdown failed", "error", err)
		}
		return nil
	})

	return g.Wait()
}
