// Package storage defines the content directory abstraction.
package storage

import "github.com/starford/folio/internal/models"

// Provider is the interface for content file operations. Paths are
// relative to the content root.
type Provider interface {
	// List returns info for every .md file under dir.
	List(dir string) ([]models.PageInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
}
