//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the posts table is searched directly.
func initFTS(*sql.DB) error                    { return nil }
func ftsUpsert(*sql.Tx, PostRow, string) error { return nil }
func ftsDelete(*sql.Tx, string)                {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches query as a substring of the title, category, tags, excerpt
// or body. The snippet is the excerpt, or the start of the body.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.Query(`
		SELECT file, title, CASE WHEN excerpt != '' THEN excerpt ELSE substr(body, 1, 200) END
		FROM posts
		WHERE title LIKE ?1 ESCAPE '\' OR category LIKE ?1 ESCAPE '\' OR tags LIKE ?1 ESCAPE '\'
		   OR excerpt LIKE ?1 ESCAPE '\' OR body LIKE ?1 ESCAPE '\'
		`+postOrder+`
		LIMIT ?2
	`, like, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return collectResults(rows)
}
