// Package manifest reads, writes and builds the posts.json listing.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/storage"
)

// Entry is one post in the manifest.
type Entry = models.PostSummary

const excerptLen = 160

// Load reads the manifest at p. A missing manifest is an empty listing.
func Load(store storage.Provider, p string) ([]Entry, error) {
	data, err := store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("manifest: read: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", p, err)
	}
	for i := range entries {
		if entries[i].Tags == nil {
			entries[i].Tags = []string{}
		}
	}
	return entries, nil
}

// Write stores entries at p as indented JSON.
func Write(store storage.Provider, p string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := store.Write(p, append(data, '\n')); err != nil {
		return fmt.Errorf("manifest: write: %w", err)
	}
	return nil
}

// Latest returns the first entry, which is the most recent post.
func Latest(entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[0], true
}

// Build parses every page under pagesDir and returns entries sorted
// newest first. Pages that cannot be read are skipped and logged.
func Build(store storage.Provider, pagesDir string, logger *slog.Logger) ([]Entry, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pages, err := store.List(pagesDir)
	if err != nil {
		return nil, fmt.Errorf("manifest: list pages: %w", err)
	}

	entries := make([]Entry, 0, len(pages))
	for _, p := range pages {
		data, err := store.Read(path.Join(pagesDir, p.Path))
		if err != nil {
			logger.Warn("manifest: read failed", slog.String("file", p.Path), slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, EntryFor(p.Path, parser.Parse(data)))
	}
	Sort(entries)
	return entries, nil
}

// EntryFor derives a manifest entry from a parsed page.
func EntryFor(file string, res *parser.Result) Entry {
	md := res.Metadata
	e := Entry{
		File:     file,
		Title:    md.Title(),
		Date:     md.Date(),
		Category: md.Category(),
		Tags:     md.Tags(),
		Excerpt:  md.Value(parser.ExcerptKey),
	}
	if e.Title == "" {
		e.Title = TitleFromFile(file)
	}
	if e.Excerpt == "" {
		e.Excerpt = md.Value("description")
	}
	if e.Excerpt == "" {
		e.Excerpt = Excerpt(res.Body)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e
}

// TitleFromFile strips the .md extension from file. Directories are kept,
// so sub/post.md becomes sub/post.
func TitleFromFile(file string) string {
	return strings.TrimSuffix(file, ".md")
}

// Sort orders entries by date descending, then by file.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].File < entries[j].File
	})
}

// Excerpt returns the first prose line of a Markdown body, shortened.
func Excerpt(body string) string {
	inFence := false
	for _, line := range parser.SplitLines(body) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || line == "" || isMarkup(line) {
			continue
		}
		return truncate(strings.TrimLeft(line, "*_ "), excerptLen)
	}
	return ""
}

func isMarkup(line string) bool {
	for _, p := range []string{"#", ">", "|", "---", "***", "<", "![", "- ", "* ", "+ "} {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}

// FileSource resolves the most recent post from a manifest file.
type FileSource struct {
	Store storage.Provider
	Path  string
}

// LatestFile returns the file of the first manifest entry, or "" when the
// manifest is missing or empty.
func (s FileSource) LatestFile(_ context.Context) (string, error) {
	entries, err := Load(s.Store, s.Path)
	if err != nil {
		return "", err
	}
	e, ok := Latest(entries)
	if !ok {
		return "", nil
	}
	return e.File, nil
}
