package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/manifest"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// postFile extracts the post file from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. series%2Fpart1.md).
func postFile(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List posts filtered by tag and search query
//	@Tags			posts
//	@Produce		json
//	@Param			tag		query		string	false	"Exact tag"
//	@Param			q		query		string	false	"Case-insensitive query over title, excerpt, category and tags"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	PostListResponse
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	f := manifest.Filter{Tag: q.Get("tag"), Query: q.Get("q")}

	posts, total, err := h.svc.ListPosts(r.Context(), f, limit, offset)
	if err != nil {
		fail(w, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts, Total: total})
}

// Tags handles GET /api/tags.
//
//	@Summary		List tags by usage count
//	@Tags			posts
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, total, err := h.svc.Tags(r.Context())
	if err != nil {
		fail(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags, Total: total})
}

// LatestPost handles GET /api/posts/latest.
//
//	@Summary		Get the most recent post
//	@Tags			posts
//	@Produce		json
//	@Success		200	{object}	Post
//	@Failure		404	{object}	errResponse
//	@Router			/posts/latest [get]
func (h *Handler) LatestPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.Post(r.Context(), "")
	if err != nil {
		fail(w, "load post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// GetPost handles GET /api/posts/*.
//
//	@Summary		Get a rendered post by file
//	@Tags			posts
//	@Produce		json
//	@Param			file	path		string	true	"Post file, relative to the pages directory"
//	@Success		200		{object}	Post
//	@Failure		404		{object}	errResponse
//	@Router			/posts/{file} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	file := postFile(r)
	if file == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	post, err := h.svc.Post(r.Context(), file)
	if err != nil {
		fail(w, "load post", err, slog.String("file", file))
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across posts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		fail(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Classify handles POST /api/classify.
//
//	@Summary		Classify a section heading
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ClassifyRequest	true	"Heading text"
//	@Success		200		{object}	ClassifyResponse
//	@Failure		400		{object}	errResponse
//	@Router			/classify [post]
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Heading) == "" {
		writeError(w, http.StatusBadRequest, "heading is required")
		return
	}
	id, ok := h.svc.Classify(req.Heading)
	writeJSON(w, http.StatusOK, ClassifyResponse{Heading: req.Heading, ID: id, Matched: ok})
}

// RebuildManifest handles POST /api/manifest/rebuild.
//
//	@Summary		Rewrite posts.json from the index
//	@Tags			manifest
//	@Produce		json
//	@Success		200	{object}	RebuildResponse
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/manifest/rebuild [post]
func (h *Handler) RebuildManifest(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.RebuildManifest(r.Context())
	if err != nil {
		fail(w, "rebuild manifest", err)
		return
	}
	writeJSON(w, http.StatusOK, RebuildResponse{Path: h.svc.ManifestPath(), Count: n})
}

// Manifest handles GET /posts.json.
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Manifest(r.Context())
	if err != nil {
		fail(w, "manifest", err)
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		fail(w, "manifest encode", err)
		return
	}
	writeCached(w, r, "application/json; charset=utf-8", append(data, '\n'))
}

// Page handles GET /pages/*, returning the raw Markdown source.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	file := postFile(r)
	if file == "" {
		http.NotFound(w, r)
		return
	}
	data, err := h.svc.Page(r.Context(), file)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			http.NotFound(w, r)
		case errors.Is(err, apperr.ErrInvalidPath):
			http.Error(w, "invalid path", http.StatusBadRequest)
		default:
			slog.Error("read page failed", slog.String("file", file), slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeCached(w, r, "text/markdown; charset=utf-8", data)
}

// writeCached writes body with a content ETag, answering 304 when the
// client already holds it.
func writeCached(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	etag := checksum.ETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
