package api

import (
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/postservice"
)

// Post is the full rendered post response (aliased from the domain layer).
type Post = postservice.Post

// PostListResponse wraps a filtered page of the listing.
type PostListResponse struct {
	Posts []models.PostSummary `json:"posts" validate:"required"`
	Total int                  `json:"total" example:"42" validate:"required"`
}

// TagListResponse lists tags by usage. Total is the number of posts, shown
// on the all-posts button.
type TagListResponse struct {
	Tags  []models.TagCount `json:"tags" validate:"required"`
	Total int               `json:"total" example:"12" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ClassifyRequest is the request body for heading classification.
type ClassifyRequest struct {
	Heading string `json:"heading" example:"요넥스 아스트록스 시리즈" validate:"required"`
}

// ClassifyResponse reports the identifier a heading maps to. ID is empty
// when no rule matched; the segmenter then uses a positional identifier.
type ClassifyResponse struct {
	Heading string `json:"heading" example:"요넥스 아스트록스 시리즈" validate:"required"`
	ID      string `json:"id" example:"yonex"`
	Matched bool   `json:"matched" example:"true"`
}

// RebuildResponse is returned after posts.json is rewritten.
type RebuildResponse struct {
	Path  string `json:"path" example:"posts.json" validate:"required"`
	Count int    `json:"count" example:"12" validate:"required"`
}
