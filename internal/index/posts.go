package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// PostRow represents a row in the posts table.
type PostRow struct {
	File      string
	Title     string
	Date      string
	Category  string
	Tags      []string
	Excerpt   string
	Checksum  string
	UpdatedAt time.Time
}

// Summary returns the listing form of the row.
func (p PostRow) Summary() models.PostSummary {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.PostSummary{
		File:     p.File,
		Title:    p.Title,
		Date:     p.Date,
		Category: p.Category,
		Excerpt:  p.Excerpt,
		Tags:     tags,
	}
}

// SearchResult represents one search hit.
type SearchResult struct {
	File    string `json:"file"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const postColumns = `file, title, date, category, tags, excerpt, checksum, updated_at`

// newest first; the same order the manifest uses
const postOrder = `ORDER BY date DESC, file ASC`

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func searchLimit(n int) int {
	switch {
	case n <= 0:
		return defaultSearchLimit
	case n > maxSearchLimit:
		return maxSearchLimit
	}
	return n
}
// UpsertPost inserts or replaces a post and its FTS entry within a transaction.
func (db *DB) UpsertPost(p PostRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if p.Tags == nil {
		p.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(p.Tags)
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO posts (file, title, date, category, tags, excerpt, body, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file) DO UPDATE SET
			title      = excluded.title,
			date       = excluded.date,
			category   = excluded.category,
			tags       = excluded.tags,
			excerpt    = excluded.excerpt,
			body       = excluded.body,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, p.File, p.Title, p.Date, p.Category, string(tagsJSON), p.Excerpt, body, p.Checksum, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	if err := ftsUpsert(tx, p, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePost removes a post and its FTS entry.
func (db *DB) DeletePost(file string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, file)
	if _, err := tx.Exec(`DELETE FROM posts WHERE file = ?`, file); err != nil {
		return fmt.Errorf("index: delete post: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a post, or empty string if not found.
func (db *DB) GetChecksum(file string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE file = ?`, file).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetPost returns one indexed post or apperr.ErrNotFound.
func (db *DB) GetPost(file string) (*PostRow, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE file = ?`, file)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get post: %w", err)
	}
	return p, nil
}

// ListPosts returns a page of posts, newest first, and the total count.
// A non-empty tag restricts the result to posts carrying that exact tag.
func (db *DB) ListPosts(limit, offset int, tag string) ([]PostRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count posts: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+postColumns+` FROM posts `+where+` `+postOrder+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list posts: %w", err)
	}
	defer rows.Close()

	out, err := collectPosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Posts returns every indexed post, newest first.
func (db *DB) Posts() ([]PostRow, error) {
	rows, err := db.conn.Query(`SELECT ` + postColumns + ` FROM posts ` + postOrder)
	if err != nil {
		return nil, fmt.Errorf("index: posts: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// Summaries returns every indexed post in manifest form.
func (db *DB) Summaries() ([]models.PostSummary, error) {
	posts, err := db.Posts()
	if err != nil {
		return nil, err
	}
	out := make([]models.PostSummary, len(posts))
	for i, p := range posts {
		out[i] = p.Summary()
	}
	return out, nil
}

// LatestFile returns the newest post's file, or "" when the index is empty.
func (db *DB) LatestFile(ctx context.Context) (string, error) {
	var file string
	err := db.conn.QueryRowContext(ctx, `SELECT file FROM posts `+postOrder+` LIMIT 1`).Scan(&file)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: latest: %w", err)
	}
	return file, nil
}

// AllChecksums returns file -> checksum for every indexed post.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT file, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var f, cs string
		if err := rows.Scan(&f, &cs); err != nil {
			return nil, err
		}
		out[f] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*PostRow, error) {
	var (
		p    PostRow
		tags string
	)
	if err := s.Scan(&p.File, &p.Title, &p.Date, &p.Category, &tags, &p.Excerpt, &p.Checksum, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil || p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func collectPosts(rows *sql.Rows) ([]PostRow, error) {
	out := []PostRow{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan post: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func collectResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.File, &r.Title, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
