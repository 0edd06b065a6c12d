// Package postservice loads a post by file name and runs it through the
// header, render and section stages.
package postservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/dateutil"
	"github.com/starford/folio/internal/manifest"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/sections"
	"github.com/starford/folio/internal/storage"
)

// LatestSource resolves the most recent post file. An empty result means
// there are no posts.
type LatestSource interface {
	LatestFile(ctx context.Context) (string, error)
}

// SectionInfo describes one section of a loaded post.
type SectionInfo struct {
	ID     string `json:"id"`
	Anchor string `json:"anchor"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Post is a fully processed post.
type Post struct {
	File        string             `json:"file"`
	Title       string             `json:"title"`
	Date        string             `json:"date,omitempty"`
	DateDisplay string             `json:"date_display,omitempty"`
	Category    string             `json:"category,omitempty"`
	Tags        []string           `json:"tags"`
	TagTargets  map[string]string  `json:"tag_targets,omitempty"`
	Metadata    parser.Metadata    `json:"metadata"`
	Sections    []SectionInfo      `json:"sections"`
	HTML        string             `json:"html"`
	Fallback    bool               `json:"fallback"`
	CommentTerm string             `json:"comment_term"`
	Checksum    string             `json:"checksum"`
	Document    *sections.Document `json:"-"`
}

// Service coordinates storage with the post pipeline.
type Service struct {
	store      storage.Provider
	latest     LatestSource
	pipeline   *render.Pipeline
	table      *sections.Table
	segmenter  *sections.Segmenter
	serializer sections.Serializer
	pagesDir   string
	dateLayout string
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRenderer sets the primary Markdown renderer. A nil renderer forces
// the literal fallback.
func WithRenderer(r render.Renderer) Option {
	return func(s *Service) { s.pipeline.Primary = r }
}

// WithTable sets the heading classification table.
func WithTable(t *sections.Table) Option {
	return func(s *Service) { s.table = t }
}

// WithLatest sets the source for the most recent post.
func WithLatest(l LatestSource) Option {
	return func(s *Service) { s.latest = l }
}

// WithPagesDir sets the directory pages are read from.
func WithPagesDir(dir string) Option {
	return func(s *Service) { s.pagesDir = dir }
}

// WithLocale selects the date display layout for a language tag.
func WithLocale(lang string) Option {
	return func(s *Service) { s.dateLayout = dateutil.LocaleLayout(lang) }
}

// WithDateLayout sets an explicit Go layout for date display.
func WithDateLayout(layout string) Option {
	return func(s *Service) {
		if layout != "" {
			s.dateLayout = layout
		}
	}
}

// WithLinkLabel sets the section source link label template.
func WithLinkLabel(label string) Option {
	return func(s *Service) { s.serializer.LinkLabel = label }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service reading from store. By default it renders with
// goldmark, classifies with the default table and reads pages/.
func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:      store,
		pipeline:   render.NewPipeline(render.NewGoldmark(render.DefaultOptions()), nil),
		pagesDir:   "pages",
		dateLayout: dateutil.LocaleLayout("ko"),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == nil {
		s.table = sections.DefaultTable()
	}
	s.pipeline.Logger = s.logger
	s.segmenter = sections.New(s.table)
	return s
}

// Table returns the classification table in use.
func (s *Service) Table() *sections.Table { return s.table }

// PagesDir returns the directory pages are read from.
func (s *Service) PagesDir() string { return s.pagesDir }

// Resolve returns file, or the latest post when file is empty.
func (s *Service) Resolve(ctx context.Context, file string) (string, error) {
	if file != "" {
		return file, nil
	}
	if s.latest == nil {
		return "", apperr.ErrNoPost
	}
	latest, err := s.latest.LatestFile(ctx)
	if err != nil {
		return "", fmt.Errorf("postservice: latest: %w", err)
	}
	if latest == "" {
		return "", apperr.ErrNoPost
	}
	return latest, nil
}

// Load reads and processes a post. An empty file loads the latest post.
// A missing page returns apperr.ErrNotFound without running the pipeline.
func (s *Service) Load(ctx context.Context, file string) (*Post, error) {
	file, err := s.Resolve(ctx, file)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(path.Join(s.pagesDir, file))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("postservice: read %s: %w", file, err)
	}
	return s.Process(ctx, file, data), nil
}

// Process runs raw page data through the pipeline. It never fails.
func (s *Service) Process(ctx context.Context, file string, data []byte) *Post {
	res := parser.Parse(data)
	log := s.logger.With(slog.String("file", file))
	if !res.HasHeader() {
		log.Debug("post has no header")
	}
	for _, key := range res.Duplicates {
		log.Warn("duplicate header key", slog.String("key", key))
	}

	out := s.pipeline.Run(ctx, res.Body)
	doc := s.segmenter.Segment(out.HTML)

	md := res.Metadata
	p := &Post{
		File:        file,
		Title:       md.Title(),
		Date:        md.Date(),
		DateDisplay: dateutil.Display(md.Date(), s.dateLayout),
		Category:    md.Category(),
		Tags:        md.Tags(),
		Metadata:    md,
		HTML:        s.serializer.String(doc),
		Fallback:    out.Fallback,
		CommentTerm: file,
		Checksum:    checksum.Sum(data),
		Document:    doc,
	}
	if p.Title == "" {
		p.Title = manifest.TitleFromFile(file)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	for _, tag := range p.Tags {
		if id, ok := s.table.TargetForTag(tag); ok {
			if p.TagTargets == nil {
				p.TagTargets = map[string]string{}
			}
			p.TagTargets[tag] = id
		}
	}
	p.Sections = make([]SectionInfo, len(doc.Sections))
	for i, sec := range doc.Sections {
		p.Sections[i] = SectionInfo{ID: sec.ID, Anchor: sec.Anchor, Title: sec.Title, Link: sec.Link}
	}
	return p
}

// Classify returns the section identifier a heading would receive.
func (s *Service) Classify(text string) (string, bool) {
	return s.table.Classify(text)
}
