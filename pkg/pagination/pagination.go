// Package pagination holds the skip/limit page parameters and envelopes shared
// by every listing operation.
package pagination

import (
	"net/url"
	"strconv"
)

// Sort orders a listing by record timestamps.
type Sort string

const (
	SortNewest          Sort = "newest"
	SortOldest          Sort = "oldest"
	SortRecentlyUpdated Sort = "recently_updated"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Page captures one page request. Page numbers are 1-based.
type Page struct {
	Number int
	Limit  int
	Sort   Sort
}

// FromQuery parses page, limit and sort query parameters, falling back to
// page 1, limit 10, newest-first. Out-of-range values are clamped rather than
// rejected.
func FromQuery(values url.Values) Page {
	p := Page{Number: 1, Limit: defaultLimit, Sort: SortNewest}
	if n, err := strconv.Atoi(values.Get("page")); err == nil && n > 0 {
		p.Number = n
	}
	if l, err := strconv.Atoi(values.Get("limit")); err == nil && l > 0 {
		p.Limit = min(l, maxLimit)
	}
	switch Sort(values.Get("sort")) {
	case SortOldest:
		p.Sort = SortOldest
	case SortRecentlyUpdated:
		p.Sort = SortRecentlyUpdated
	}
	return p
}

// Offset returns the number of records to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Result wraps one page of items with the counters clients page by.
type Result[T any] struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalItems  int `json:"total_items"`
	Items       []T `json:"items"`
}

// NewResult assembles a page envelope. Items may be an empty slice; it is
// never nil in the JSON output.
func NewResult[T any](page Page, total int, items []T) Result[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + page.Limit - 1) / page.Limit
	}
	return Result[T]{
		CurrentPage: page.Number,
		TotalPages:  totalPages,
		TotalItems:  total,
		Items:       items,
	}
}

// Slice applies skip/limit to an already-sorted in-memory slice.
func Slice[T any](page Page, items []T) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := min(start+page.Limit, len(items))
	return items[start:end]
}
