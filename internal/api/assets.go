package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// AssetHandler serves site assets (stylesheets, scripts, images) from a
// directory on disk.
type AssetHandler struct {
	root string
}

// NewAssetHandler creates a handler rooted at dir.
func NewAssetHandler(dir string) *AssetHandler {
	return &AssetHandler{root: filepath.Clean(dir)}
}

// safeName resolves a slash-separated asset name under the root. Hidden
// segments and traversal are rejected.
func (h *AssetHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("asset name is required")
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." || strings.HasPrefix(seg, ".") {
			return "", fmt.Errorf("invalid asset name: %s", name)
		}
	}
	abs := filepath.Join(h.root, filepath.FromSlash(name))
	if !strings.HasPrefix(abs, h.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes asset directory")
	}
	return abs, nil
}

// ServeFile handles GET /static/*.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.safeName(postFile(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	info, statErr := os.Stat(abs)
	if statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
