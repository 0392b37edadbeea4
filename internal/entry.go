// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/berkana/internal/api"
	"github.com/starford/berkana/internal/autosave"
	"github.com/starford/berkana/internal/mcpserver"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/sse"
	"github.com/starford/berkana/internal/watch"
)

func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the HTTP server, file watcher, and autosaver with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := openServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	broker := sse.NewBroker(cfg.Events.GraphThrottle, sse.WithHeartbeat(cfg.Events.Heartbeat))
	defer broker.Close()

	saver := autosave.New(svc.notes, svc.diet,
		autosave.WithDelays(cfg.Autosave.Delays()),
		autosave.WithLogger(logger),
		autosave.WithRenameHook(func(oldPath string, r *models.RenamedNote) {
			broker.PublishChange(sse.Change{Kind: sse.NoteRenamed, Path: r.FilePath, OldPath: oldPath})
		}),
	)

	apiRouter := api.NewRouter(api.Deps{
		Notes:   svc.notes,
		Diet:    svc.diet,
		Catalog: svc.catalog,
		Prefs:   svc.prefs,
		Saver:   saver,
		Events:  broker,
		Logger:  logger,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","catalog_items":%d,"sse_clients":%d}`,
			svc.catalog.Len(), broker.ClientCount())
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Warm the food catalog so the first search does not pay for the load.
	g.Go(func() error {
		items, loadErr := svc.catalog.Load(gCtx)
		if loadErr != nil {
			logger.Warn("food catalog unavailable", slog.String("error", loadErr.Error()))
			return nil
		}
		logger.Info("food catalog loaded", slog.Int("items", len(items)))
		return nil
	})

	// Start file watcher feeding the SSE broker.
	g.Go(func() error {
		w := watch.New(cfg.Data.Path, broker.PublishChange,
			watch.WithSettle(cfg.Events.WatchSettle),
			watch.WithLogger(logger))
		if watchErr := w.Run(gCtx); watchErr != nil {
			logger.Error("watcher failed", slog.String("error", watchErr.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Write anything still waiting on its debounce delay.
		saver.Close()
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio until the client disconnects.
// Logs go to the configured log output, never stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	logger := app.logger()

	svc, err := openServices(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("MCP server starting", slog.String("data_path", app.config.Data.Path))
	return mcpserver.New(svc.notes, svc.diet, svc.catalog, svc.prefs, logger).ServeStdio()
}
