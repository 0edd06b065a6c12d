package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/models"
)

const tempPrefix = ".folio-tmp-"

// FS implements Provider on the local file system. All access goes through
// an os.Root, so neither ".." segments nor symlinks can leave the content
// directory.
type FS struct {
	dir  string
	root *os.Root
}

// NewFS opens an FS rooted at dir, which must be an existing directory.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open root: %w", err)
	}
	return &FS{dir: abs, root: root}, nil
}

// Root returns the absolute content root.
func (f *FS) Root() string { return f.dir }

// Close releases the root directory handle.
func (f *FS) Close() error { return f.root.Close() }

// name converts a slash-separated relative path into a root-relative name.
func name(rel string) (string, error) {
	if rel == "" {
		return ".", nil
	}
	cleaned := path.Clean(rel)
	if !filepath.IsLocal(filepath.FromSlash(cleaned)) {
		return "", fmt.Errorf("storage: %w: %s", apperr.ErrInvalidPath, rel)
	}
	return cleaned, nil
}

// List walks dir and returns info for every .md file, sorted by path.
// Paths use forward slashes and are relative to dir. A missing dir yields
// an empty list.
func (f *FS) List(dir string) ([]models.PageInfo, error) {
	base, err := name(dir)
	if err != nil {
		return nil, err
	}
	fsys := f.root.FS()
	out := []models.PageInfo{}
	err = fs.WalkDir(fsys, base, func(p string, d fs.DirEntry, walkErr error) error {
		switch {
		case walkErr != nil && p == base && errors.Is(walkErr, fs.ErrNotExist):
			return fs.SkipAll
		case walkErr != nil:
			return walkErr
		case d.IsDir(), strings.HasPrefix(d.Name(), "."), path.Ext(d.Name()) != ".md":
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(p, base+"/")
		if base == "." {
			rel = p
		}
		out = append(out, models.PageInfo{
			Path:      rel,
			Checksum:  checksum.Sum(data),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	slices.SortFunc(out, func(a, b models.PageInfo) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

// Read returns the raw bytes of a file. A missing file yields an error
// matching os.ErrNotExist.
func (f *FS) Read(p string) ([]byte, error) {
	n, err := name(p)
	if err != nil {
		return nil, err
	}
	data, err := f.root.ReadFile(n)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Exists reports whether a regular file exists at p.
func (f *FS) Exists(p string) (bool, error) {
	n, err := name(p)
	if err != nil {
		return false, err
	}
	info, err := f.root.Stat(n)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return info.Mode().IsRegular(), nil
}

// Write replaces p with content. The bytes go to a synced temp file in the
// same directory which is then renamed over p.
func (f *FS) Write(p string, content []byte) error {
	n, err := name(p)
	if err != nil {
		return err
	}
	dir := path.Dir(n)
	if err := f.root.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmpName := path.Join(dir, tempPrefix+rand.Text())
	tmp, err := f.root.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = f.root.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := f.root.Rename(tmpName, n); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	committed = true
	return nil
}

// Delete removes a file.
func (f *FS) Delete(p string) error {
	n, err := name(p)
	if err != nil {
		return err
	}
	if err := f.root.Remove(n); err != nil {
		return fmt.Errorf("storage: delete %s: %w", p, err)
	}
	return nil
}
