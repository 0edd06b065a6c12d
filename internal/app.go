package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/sections"
	"github.com/starford/folio/internal/storage"
)

type application struct {
	config *Config
	logOut io.Writer
	logger *slog.Logger

	// closed in reverse order by close
	closers []io.Closer
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errors.New("config is required")
	}

	logger, closer, err := newLogger(app.config.App, app.logOut)
	if err != nil {
		return nil, err
	}
	app.logger = logger
	app.closers = append(app.closers, closer)
	return app, nil
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// openStore creates the content and pages directories if needed.
func (a *application) openStore() (*storage.FS, error) {
	cfg := a.config.Content
	if err := os.MkdirAll(filepath.Join(cfg.Root, filepath.FromSlash(cfg.PagesDir)), 0o755); err != nil {
		return nil, fmt.Errorf("create pages dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.closers = append(a.closers, store)
	return store, nil
}

// openIndex opens the SQLite index and brings it up to date with the pages.
func (a *application) openIndex(store storage.Provider) (*index.DB, error) {
	db, err := index.Open(a.config.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	changed, removed, err := index.Sync(db, store, a.config.Content.PagesDir, a.logger)
	if err != nil {
		a.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		a.logger.Info("index synced", slog.Int("changed", changed), slog.Int("removed", removed))
	}
	return db, nil
}

// postService builds the post pipeline from the render, site and sections
// configuration.
func (a *application) postService(store storage.Provider, r render.Renderer, latest postservice.LatestSource) (*postservice.Service, error) {
	cfg := a.config
	layout, err := cfg.Site.DateLayout()
	if err != nil {
		return nil, fmt.Errorf("date format: %w", err)
	}

	opts := []postservice.Option{
		postservice.WithRenderer(r),
		postservice.WithLatest(latest),
		postservice.WithPagesDir(cfg.Content.PagesDir),
		postservice.WithDateLayout(layout),
		postservice.WithLogger(a.logger),
	}
	if cfg.Sections.TableFile != "" {
		table, err := sections.LoadTableFile(cfg.Sections.TableFile)
		if err != nil {
			return nil, fmt.Errorf("load section table: %w", err)
		}
		a.logger.Info("section table loaded",
			slog.String("file", cfg.Sections.TableFile), slog.Int("rules", table.Len()))
		opts = append(opts, postservice.WithTable(table))
	}
	if cfg.Sections.LinkLabel != "" {
		opts = append(opts, postservice.WithLinkLabel(cfg.Sections.LinkLabel))
	}
	return postservice.New(store, opts...), nil
}
