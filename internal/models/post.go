// Package models defines the domain types shared across folio packages.
package models

import "time"

// PageInfo describes a page file found in storage.
type PageInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostSummary is one row of the post listing. Its JSON form is the
// posts.json manifest entry.
type PostSummary struct {
	File     string   `json:"file"`
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Category string   `json:"category,omitempty"`
	Excerpt  string   `json:"excerpt,omitempty"`
	Tags     []string `json:"tags"`
}

// TagCount is a tag and the number of posts carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
