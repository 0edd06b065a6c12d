package manifest

import (
	"slices"
	"strings"

	"github.com/starford/folio/internal/models"
)

// Filter is the listing state: an optional active tag and a search query.
type Filter struct {
	Tag   string
	Query string
}

// IsZero reports whether the filter selects everything.
func (f Filter) IsZero() bool {
	return f.Tag == "" && strings.TrimSpace(f.Query) == ""
}

// Match reports whether e passes the filter. The tag must match exactly;
// the query is a case-insensitive substring of title, excerpt, category
// or any tag.
func (f Filter) Match(e Entry) bool {
	if f.Tag != "" && !slices.Contains(e.Tags, f.Tag) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Title), q) ||
		strings.Contains(strings.ToLower(e.Excerpt), q) ||
		strings.Contains(strings.ToLower(e.Category), q) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Apply returns the entries passing f, in order.
func Apply(entries []Entry, f Filter) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// AggregateTags counts tags across entries, most used first. Ties keep
// the order in which tags were first seen.
func AggregateTags(entries []Entry) []models.TagCount {
	index := map[string]int{}
	var out []models.TagCount
	for _, e := range entries {
		for _, t := range e.Tags {
			if i, ok := index[t]; ok {
				out[i].Count++
				continue
			}
			index[t] = len(out)
			out = append(out, models.TagCount{Tag: t, Count: 1})
		}
	}
	slices.SortStableFunc(out, func(a, b models.TagCount) int {
		return b.Count - a.Count
	})
	if out == nil {
		out = []models.TagCount{}
	}
	return out
}
