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

	"github.com/starford/vrindex/internal/api"
	"github.com/starford/vrindex/internal/index"
	"github.com/starford/vrindex/internal/journal"
	"github.com/starford/vrindex/internal/loader"
	"github.com/starford/vrindex/internal/mcpserver"
	"github.com/starford/vrindex/internal/service"
	"github.com/starford/vrindex/internal/sse"
	"github.com/starford/vrindex/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger builds the structured JSON logger and makes it the default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// open builds the service over the sources directory and the journal, loads
// every source and restores recent snapshots into the queue. The returned
// closer releases the journal.
func open(ctx context.Context, cfg *Config, logger *slog.Logger, notify service.Notifier) (*service.Service, func(), error) {
	// Ensure sources directory exists.
	if err := os.MkdirAll(cfg.Sources.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create sources dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Sources.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := journal.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init journal: %w", err)
	}

	ix := index.New(append(cfg.Index.Options(), index.WithLogger(logger))...)
	opts := []service.Option{
		service.WithStore(store),
		service.WithJournal(db),
		service.WithSourceNamespace(cfg.Sources.Namespace),
		service.WithRetention(cfg.Queue.Keep),
		service.WithLogger(logger),
	}
	if notify != nil {
		opts = append(opts, service.WithNotifier(notify))
	}
	svc := service.New(ix, opts...)

	// Run initial sync.
	if err := loader.Sync(ctx, svc, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	if cfg.Queue.Restore > 0 {
		n, err := svc.Restore(ctx, cfg.Queue.Restore)
		if err != nil {
			logger.Warn("restore queue failed", slog.String("error", err.Error()))
		} else {
			logger.Info("Queue restored", slog.Int("snapshots", n))
		}
	}

	return svc, func() { _ = db.Close() }, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sources_path", cfg.Sources.Path),
		slog.String("sources_namespace", cfg.Sources.Namespace),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("overwrite", cfg.Index.Overwrite),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, closeJournal, err := open(ctx, cfg, logger, broker.PublishChange)
	if err != nil {
		return err
	}
	defer closeJournal()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher. The service already reports loads to the broker.
	if cfg.Sources.Watch {
		g.Go(func() error {
			err := loader.Watch(gCtx, svc, logger, func(kind, path string) {
				logger.Info("Source reloaded", slog.String("kind", kind), slog.String("path", path))
			})
			if err != nil {
				logger.Error("watcher: stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	svc, closeJournal, err := open(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer closeJournal()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}
