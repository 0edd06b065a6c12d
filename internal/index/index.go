package index

import (
	"context"

	"github.com/starford/folio/internal/models"
)

// PostIndex defines the interface for post indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PostIndex interface {
	UpsertPost(p PostRow, body string) error
	DeletePost(file string) error
	GetChecksum(file string) (string, error)
	GetPost(file string) (*PostRow, error)
	ListPosts(limit, offset int, tag string) ([]PostRow, int, error)
	Posts() ([]PostRow, error)
	Summaries() ([]models.PostSummary, error)
	LatestFile(ctx context.Context) (string, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies PostIndex at compile time.
var _ PostIndex = (*DB)(nil)
