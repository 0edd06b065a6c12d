package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// settleDelay is how long a burst of file events must be quiet before the
// touched pages are reindexed.
const settleDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of EventCreated, EventUpdated, EventDeleted; file is relative
// to the pages directory.
type EventCallback func(kind string, file string)

// Pages locates the page directory both on disk and inside the store.
type Pages struct {
	// Root is the absolute on-disk path of the pages directory.
	Root string
	// Dir is the same directory relative to the store root.
	Dir string
}

type watcher struct {
	fw     *fsnotify.Watcher
	db     PostIndex
	store  storage.Provider
	pages  Pages
	logger *slog.Logger
	notify EventCallback

	// pending work, flushed once events settle
	dirty map[string]struct{}
	full  bool
}

// Watch watches the pages directory and keeps the index in step with it
// until ctx is cancelled. cb, if non-nil, is called after each index change.
//
// Events are collected per file and handled once they settle, so an editor
// saving in several writes produces one update and unchanged content
// produces none. New directories and renames trigger a full reconcile.
func Watch(ctx context.Context, db PostIndex, store storage.Provider, pages Pages, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	w := &watcher{
		fw:     fw,
		db:     db,
		store:  store,
		pages:  pages,
		logger: logger,
		notify: func(string, string) {},
		dirty:  make(map[string]struct{}),
	}
	if cb != nil {
		w.notify = cb
	}
	if err := w.addTree(pages.Root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", pages.Root))

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-settle.C:
			w.flush()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.observe(ev) {
				settle.Reset(settleDelay)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// observe records the work an event implies and reports whether any was
// recorded.
func (w *watcher) observe(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			// Pages may have landed before the watch was added.
			w.full = true
			return true
		}
	}
	file, ok := pageFile(w.pages.Root, ev.Name)
	if !ok {
		if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			// Possibly a directory full of pages.
			w.full = true
			return true
		}
		return false
	}
	if ev.Has(fsnotify.Rename) {
		// The new name only shows up as a Create inside a watched directory.
		w.full = true
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	w.dirty[file] = struct{}{}
	return true
}

func (w *watcher) flush() {
	if w.full {
		if _, _, err := reconcile(w.db, w.store, w.pages.Dir, w.logger, w.notify); err != nil {
			w.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
		}
	} else {
		for file := range w.dirty {
			w.refresh(file)
		}
	}
	w.full = false
	clear(w.dirty)
}

// refresh brings one page's index entry in line with the file on disk.
func (w *watcher) refresh(file string) {
	log := w.logger.With(slog.String("file", file))
	prev, err := w.db.GetChecksum(file)
	if err != nil {
		log.Warn("watcher: checksum lookup failed", slog.String("error", err.Error()))
		return
	}

	data, err := w.store.Read(path.Join(w.pages.Dir, file))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if prev == "" {
			return
		}
		if err := w.db.DeletePost(file); err != nil {
			log.Warn("watcher: delete failed", slog.String("error", err.Error()))
			return
		}
		log.Debug("watcher: deleted")
		w.notify(EventDeleted, file)
		return
	case err != nil:
		log.Warn("watcher: read failed", slog.String("error", err.Error()))
		return
	}

	if checksum.Sum(data) == prev {
		return
	}
	if err := IndexPage(w.db, file, data); err != nil {
		log.Warn("watcher: index failed", slog.String("error", err.Error()))
		return
	}
	kind := changeKind(prev != "")
	log.Debug("watcher: indexed", slog.String("op", kind))
	w.notify(kind, file)
}

// pageFile maps an absolute event path to a page file relative to root.
// Non-Markdown and hidden files are rejected.
func pageFile(root, name string) (string, bool) {
	if filepath.Ext(name) != ".md" || strings.HasPrefix(filepath.Base(name), ".") {
		return "", false
	}
	rel, err := filepath.Rel(root, name)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// addTree watches dir and every non-hidden directory below it.
func (w *watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir():
			return nil
		case p != dir && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		}
		return w.fw.Add(p)
	})
}
