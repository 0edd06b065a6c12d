package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes, meant to be mounted
// at /api. Reads are public; authEnabled guards the write endpoints with a
// Bearer token. sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Posts.
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/latest", h.LatestPost)
	r.Get("/posts/*", h.GetPost)
	r.Get("/tags", h.Tags)

	// Search and classification.
	r.Get("/search", h.Search)
	r.Post("/classify", h.Classify)

	r.Group(func(r chi.Router) {
		if authEnabled {
			r.Use(requireBearer(token))
		}
		r.Post("/manifest/rebuild", h.RebuildManifest)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// ContentRoutes registers the public content routes: the posts.json
// manifest, raw page sources and, when assetDir is set, /static assets.
func ContentRoutes(svc *Service, assetDir string) func(chi.Router) {
	h := NewHandler(svc)
	return func(r chi.Router) {
		r.Get("/posts.json", h.Manifest)
		r.Get("/pages/*", h.Page)
		if assetDir != "" {
			r.Get("/static/*", NewAssetHandler(assetDir).ServeFile)
		}
	}
}
