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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/web"
)

const (
	manifestThrottle = 2 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// Run starts the HTTP server, the pages watcher and the event stream, and
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer app.close()

	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", cfg.Content.Root),
		slog.String("pages_dir", cfg.Content.PagesDir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := app.openStore()
	if err != nil {
		return err
	}

	db, err := app.openIndex(store)
	if err != nil {
		return err
	}
	defer db.Close()

	md := render.NewGoldmark(cfg.Render.Options())
	posts, err := app.postService(store, md, db)
	if err != nil {
		return err
	}
	svc := api.NewService(posts, db, store, cfg.Content.ManifestPath)

	rebuildManifest := func(ctx context.Context) {
		if !cfg.Content.AutoManifest {
			return
		}
		n, err := svc.RebuildManifest(ctx)
		if err != nil {
			logger.Warn("manifest rebuild failed", slog.String("error", err.Error()))
			return
		}
		logger.Debug("manifest rebuilt", slog.String("path", svc.ManifestPath()), slog.Int("count", n))
	}
	rebuildManifest(ctx)

	broker := sse.NewBroker(manifestThrottle)
	defer broker.Close()

	layout, err := cfg.Site.DateLayout()
	if err != nil {
		return fmt.Errorf("date format: %w", err)
	}
	pages, err := web.NewHandler(svc, web.Site{
		Name:       cfg.Site.Name,
		Lang:       cfg.Site.Lang,
		StyleURL:   cfg.Site.StyleURL,
		DateLayout: layout,
		Comments:   cfg.Comments.Widget(),
	}, md, logger)
	if err != nil {
		return fmt.Errorf("init pages: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", healthHandler(nil))
	r.Get("/health/ready", healthHandler(func() error {
		if _, err := os.Stat(store.Root()); err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return db.Ping(pingCtx)
	}))

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	r.Group(api.ContentRoutes(svc, cfg.Site.StaticDir))
	r.Group(pages.Routes)
	r.NotFound(pages.NotFound)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Reindex changed pages and announce them on the event stream.
	g.Go(func() error {
		watched := index.Pages{
			Root: filepath.Join(store.Root(), filepath.FromSlash(cfg.Content.PagesDir)),
			Dir:  cfg.Content.PagesDir,
		}
		err := index.Watch(gCtx, db, store, watched, logger, func(kind, file string) {
			broker.PublishPostEvent(kind, file)
			rebuildManifest(gCtx)
		})
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Open event streams never finish on their own.
		broker.Close()
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

func healthHandler(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
