//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
			file UNINDEXED,
			title,
			category,
			tags,
			excerpt,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, p PostRow, body string) error {
	if _, err := tx.Exec(`DELETE FROM posts_fts WHERE file = ?`, p.File); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	_, err := tx.Exec(`INSERT INTO posts_fts (file, title, category, tags, excerpt, body) VALUES (?, ?, ?, ?, ?, ?)`,
		p.File, p.Title, p.Category, strings.Join(p.Tags, " "), p.Excerpt, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, file string) {
	_, _ = tx.Exec(`DELETE FROM posts_fts WHERE file = ?`, file)
}

// ftsQuery turns free text into an FTS5 query: every term is quoted so
// operators in user input are literal, and the last term matches as a prefix.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	if n := len(terms); n > 0 {
		terms[n-1] += "*"
	}
	return strings.Join(terms, " ")
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	q := ftsQuery(query)
	if q == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT file,
		       title,
		       snippet(posts_fts, 5, '<b>', '</b>', '...', 64)
		FROM posts_fts
		WHERE posts_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, q, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return collectResults(rows)
}
