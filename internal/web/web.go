// Package web serves the server-rendered listing and post pages.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/dateutil"
	"github.com/starford/folio/internal/manifest"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/postservice"
)

//go:embed templates
var templateFS embed.FS

const (
	errorTitle       = "오류"
	msgPostNotFound  = "게시글을 찾을 수 없습니다."
	msgPostLoadError = "게시글을 불러오는 중 오류가 발생했습니다."
)

// Source provides posts to the pages.
type Source interface {
	Post(ctx context.Context, file string) (*postservice.Post, error)
	Manifest(ctx context.Context) ([]models.PostSummary, error)
}

// CSSWriter writes the syntax highlighting stylesheet.
type CSSWriter interface {
	WriteCSS(w io.Writer) error
}

// Comments configures the giscus comment widget.
type Comments struct {
	Repo          string
	RepoID        string
	Category      string
	CategoryID    string
	Mapping       string
	InputPosition string
	Theme         string
	Lang          string
	Reactions     bool
	EmitMetadata  bool
}

// Site holds the values shared by every page.
type Site struct {
	Name       string
	Lang       string
	StyleURL   string
	DateLayout string
	// Comments is nil when comments are disabled.
	Comments *Comments
}

// PageData is passed to every page template.
type PageData struct {
	Site    Site
	Title   string
	Message string

	// Listing.
	Filter manifest.Filter
	Posts  []models.PostSummary
	Tags   []models.TagCount
	Total  int

	// Post.
	Post     *postservice.Post
	PostTags []PostTag
	Content  template.HTML
	Comments *Comments
}

// PostTag is a tag chip on the post page. Target is the section the chip
// opens, empty when no section matches.
type PostTag struct {
	Label  string
	Target string
}

// Handler renders the site pages.
type Handler struct {
	src    Source
	site   Site
	css    CSSWriter
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewHandler parses the page templates. css may be nil, in which case
// /highlight.css serves an empty stylesheet.
func NewHandler(src Source, site Site, css CSSWriter, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if site.DateLayout == "" {
		site.DateLayout = dateutil.LocaleLayout(site.Lang)
	}
	base, err := parseTemplates(site.DateLayout)
	if err != nil {
		return nil, fmt.Errorf("web: parse layouts: %w", err)
	}
	h := &Handler{src: src, site: site, css: css, pages: make(map[string]*template.Template), logger: logger}
	for _, name := range []string{"index", "post", "error"} {
		tmpl, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("web: clone layout: %w", err)
		}
		if tmpl, err = tmpl.ParseFS(templateFS, "templates/pages/"+name+".html"); err != nil {
			return nil, fmt.Errorf("web: parse page %s: %w", name, err)
		}
		h.pages[name] = tmpl
	}
	return h, nil
}

func customFuncs(dateLayout string) template.FuncMap {
	return template.FuncMap{
		"displayDate": func(s string) string { return dateutil.Display(s, dateLayout) },
		"postURL":     postURL,
		"listURL":     listURL,
	}
}

func parseTemplates(dateLayout string) (*template.Template, error) {
	return template.New("").Funcs(customFuncs(dateLayout)).ParseFS(templateFS, "templates/layouts/*.html")
}

// postURL links a listing card to its post page.
func postURL(file string) string {
	return "/post?file=" + url.QueryEscape(file)
}

// listURL links to the listing with a tag and query applied.
func listURL(tag, query string) string {
	v := url.Values{}
	if tag != "" {
		v.Set("tag", tag)
	}
	if query != "" {
		v.Set("q", query)
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}

// Routes registers the page routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/index.html", h.Index)
	r.Get("/post", h.Post)
	r.Get("/post.html", h.Post)
	r.Get("/highlight.css", h.HighlightCSS)
}

// executePage renders into a buffer first so a template error never leaves
// a half-written page behind.
func (h *Handler) executePage(w http.ResponseWriter, status int, page string, data PageData) {
	tmpl, ok := h.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	data.Site = h.site
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("render page failed", slog.String("page", page), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Index renders the post listing filtered by ?tag= and ?q=.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	all, err := h.src.Manifest(r.Context())
	if err != nil {
		h.logger.Error("load manifest failed", slog.String("error", err.Error()))
		h.showError(w, http.StatusInternalServerError, msgPostLoadError)
		return
	}
	q := r.URL.Query()
	f := manifest.Filter{Tag: q.Get("tag"), Query: strings.TrimSpace(q.Get("q"))}
	h.executePage(w, http.StatusOK, "index", PageData{
		Filter: f,
		Posts:  manifest.Apply(all, f),
		Tags:   manifest.AggregateTags(all),
		Total:  len(all),
	})
}

// Post renders one post. Without ?file= it shows the latest post.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	post, err := h.src.Post(r.Context(), file)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrNoPost), errors.Is(err, apperr.ErrInvalidPath):
			h.showError(w, http.StatusNotFound, msgPostNotFound)
		default:
			h.logger.Error("load post failed", slog.String("file", file), slog.String("error", err.Error()))
			h.showError(w, http.StatusInternalServerError, msgPostLoadError)
		}
		return
	}

	tags := make([]PostTag, 0, len(post.Tags))
	for _, t := range post.Tags {
		tags = append(tags, PostTag{Label: t, Target: post.TagTargets[t]})
	}
	h.executePage(w, http.StatusOK, "post", PageData{
		Title:    post.Title,
		Post:     post,
		PostTags: tags,
		// Post HTML is sanitised by the renderer and escaped by the serializer.
		Content:  template.HTML(post.HTML),
		Comments: h.site.Comments,
	})
}

// NotFound renders the error page for unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	h.showError(w, http.StatusNotFound, msgPostNotFound)
}

func (h *Handler) showError(w http.ResponseWriter, status int, msg string) {
	h.executePage(w, status, "error", PageData{Title: errorTitle, Message: msg})
}

// HighlightCSS serves the code highlighting stylesheet.
func (h *Handler) HighlightCSS(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if h.css != nil {
		if err := h.css.WriteCSS(&buf); err != nil {
			h.logger.Error("write highlight css failed", slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = buf.WriteTo(w)
}
