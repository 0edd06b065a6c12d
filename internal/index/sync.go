package index

import (
	"log/slog"
	"path"
	"time"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/manifest"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/storage"
)

// Sync walks pagesDir and brings the index up to date: new and changed
// pages are parsed and upserted, pages gone from disk are deleted. It
// returns the number of upserted and removed posts.
func Sync(db PostIndex, store storage.Provider, pagesDir string, logger *slog.Logger) (changed, removed int, err error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return reconcile(db, store, pagesDir, logger, nil)
}

// reconcile diffs the pages on disk against the stored checksums and
// applies the difference, reporting each change to notify when set.
// Failures on single pages are logged and skipped.
func reconcile(db PostIndex, store storage.Provider, pagesDir string, logger *slog.Logger, notify EventCallback) (changed, removed int, err error) {
	pages, err := store.List(pagesDir)
	if err != nil {
		return 0, 0, err
	}
	indexed, err := db.AllChecksums()
	if err != nil {
		return 0, 0, err
	}

	for _, p := range pages {
		prev, seen := indexed[p.Path]
		delete(indexed, p.Path)
		if seen && prev == p.Checksum {
			continue
		}
		data, err := store.Read(path.Join(pagesDir, p.Path))
		if err != nil {
			logger.Warn("sync: read failed", slog.String("file", p.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexPage(db, p.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("file", p.Path), slog.String("error", err.Error()))
			continue
		}
		changed++
		logger.Debug("sync: indexed", slog.String("file", p.Path))
		if notify != nil {
			notify(changeKind(seen), p.Path)
		}
	}

	// Whatever is left in indexed has no file behind it.
	for file := range indexed {
		if err := db.DeletePost(file); err != nil {
			logger.Warn("sync: delete failed", slog.String("file", file), slog.String("error", err.Error()))
			continue
		}
		removed++
		logger.Debug("sync: removed stale", slog.String("file", file))
		if notify != nil {
			notify(EventDeleted, file)
		}
	}
	return changed, removed, nil
}

func changeKind(existed bool) string {
	if existed {
		return EventUpdated
	}
	return EventCreated
}

// IndexPage parses data and upserts it as file.
func IndexPage(db PostIndex, file string, data []byte) error {
	res := parser.Parse(data)
	e := manifest.EntryFor(file, res)
	return db.UpsertPost(PostRow{
		File:      file,
		Title:     e.Title,
		Date:      e.Date,
		Category:  e.Category,
		Tags:      e.Tags,
		Excerpt:   e.Excerpt,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}, res.Body)
}
