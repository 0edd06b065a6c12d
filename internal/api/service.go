package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/manifest"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/storage"
)

// Service coordinates post loading, the index and the manifest for the
// HTTP layer.
type Service struct {
	posts        *postservice.Service
	db           index.PostIndex
	store        storage.Provider
	manifestPath string
}

// NewService creates a new API service. manifestPath is the store-relative
// location posts.json is rebuilt to.
func NewService(posts *postservice.Service, db index.PostIndex, store storage.Provider, manifestPath string) *Service {
	return &Service{posts: posts, db: db, store: store, manifestPath: manifestPath}
}

// Post loads and renders one post. An empty file loads the latest post.
func (s *Service) Post(ctx context.Context, file string) (*postservice.Post, error) {
	return s.posts.Load(ctx, file)
}

// Manifest returns every post in posts.json form, newest first.
func (s *Service) Manifest(_ context.Context) ([]models.PostSummary, error) {
	return s.db.Summaries()
}

// ListPosts filters the listing and returns one page plus the filtered total.
func (s *Service) ListPosts(ctx context.Context, f manifest.Filter, limit, offset int) ([]models.PostSummary, int, error) {
	all, err := s.Manifest(ctx)
	if err != nil {
		return nil, 0, err
	}
	matched := manifest.Apply(all, f)
	return paginate(matched, limit, offset), len(matched), nil
}

// Tags returns tag counts over all posts and the total post count.
func (s *Service) Tags(ctx context.Context) ([]models.TagCount, int, error) {
	all, err := s.Manifest(ctx)
	if err != nil {
		return nil, 0, err
	}
	return manifest.AggregateTags(all), len(all), nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Classify returns the section identifier a heading would receive.
func (s *Service) Classify(text string) (string, bool) {
	return s.posts.Classify(text)
}

// Page returns the raw Markdown source of a post.
func (s *Service) Page(_ context.Context, file string) ([]byte, error) {
	data, err := s.store.Read(path.Join(s.posts.PagesDir(), file))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// RebuildManifest writes posts.json from the index and returns the number
// of entries written.
func (s *Service) RebuildManifest(ctx context.Context) (int, error) {
	entries, err := s.Manifest(ctx)
	if err != nil {
		return 0, err
	}
	if err := manifest.Write(s.store, s.manifestPath, entries); err != nil {
		return 0, fmt.Errorf("api: rebuild manifest: %w", err)
	}
	return len(entries), nil
}

// ManifestPath returns where RebuildManifest writes.
func (s *Service) ManifestPath() string { return s.manifestPath }

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
