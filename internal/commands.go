package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/folio/internal/manifest"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/render"
)

// Output formats for RenderPost.
const (
	FormatHTML = "html"
	FormatJSON = "json"
)

// RenderPost renders one post to w. An empty file renders the latest post
// listed in the manifest.
func RenderPost(ctx context.Context, w io.Writer, file, format string, opts ...Option) error {
	if format != FormatHTML && format != FormatJSON {
		return fmt.Errorf("unknown format %q", format)
	}
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer app.close()

	store, err := app.openStore()
	if err != nil {
		return err
	}
	latest := manifest.FileSource{Store: store, Path: app.config.Content.ManifestPath}
	posts, err := app.postService(store, render.NewGoldmark(app.config.Render.Options()), latest)
	if err != nil {
		return err
	}

	post, err := posts.Load(ctx, file)
	if err != nil {
		return err
	}
	if post.Fallback {
		app.logger.Warn("rendered with literal fallback", slog.String("file", post.File))
	}

	if format == FormatHTML {
		_, err = io.WriteString(w, post.HTML+"\n")
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(post)
}

// BuildManifest parses every page and rewrites the manifest. It returns the
// manifest path and the number of entries written.
func BuildManifest(_ context.Context, opts ...Option) (string, int, error) {
	app, err := newApplication(opts)
	if err != nil {
		return "", 0, err
	}
	defer app.close()

	store, err := app.openStore()
	if err != nil {
		return "", 0, err
	}
	cfg := app.config.Content
	entries, err := manifest.Build(store, cfg.PagesDir, app.logger)
	if err != nil {
		return "", 0, err
	}
	if err := manifest.Write(store, cfg.ManifestPath, entries); err != nil {
		return "", 0, err
	}
	app.logger.Info("manifest written", slog.String("path", cfg.ManifestPath), slog.Int("count", len(entries)))
	return cfg.ManifestPath, len(entries), nil
}

// ServeMCP serves the MCP tools on stdin and stdout until ctx is cancelled.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer app.close()

	store, err := app.openStore()
	if err != nil {
		return err
	}
	db, err := app.openIndex(store)
	if err != nil {
		return err
	}
	defer db.Close()

	posts, err := app.postService(store, render.NewGoldmark(app.config.Render.Options()), db)
	if err != nil {
		return err
	}
	app.logger.Info("MCP server starting on stdio")
	return mcpserver.New(posts, db, store).Listen(ctx, os.Stdin, os.Stdout)
}
