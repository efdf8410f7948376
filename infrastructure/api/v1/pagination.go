package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/unifiedsync/syncd/domain/store"
)

// PaginationParams holds pagination parameters parsed from query strings.
type PaginationParams struct {
	page     int
	pageSize int
}

// DefaultPageSize is the default number of items per page.
const DefaultPageSize = 20

// MaxPageSize is the maximum allowed page size.
const MaxPageSize = 100

// NewPaginationParams creates pagination params with defaults.
func NewPaginationParams() PaginationParams {
	return PaginationParams{
		page:     1,
		pageSize: DefaultPageSize,
	}
}

// ParsePagination parses pagination parameters from an HTTP request.
// Default: page=1, page_size=20
// Max page_size: 100
func ParsePagination(r *http.Request) PaginationParams {
	params := NewPaginationParams()

	// Parse page parameter
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page >= 1 {
			params.page = page
		}
	}

	// Parse page_size parameter
	if sizeStr := r.URL.Query().Get("page_size"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size >= 1 {
			params.pageSize = size
			if params.pageSize > MaxPageSize {
				params.pageSize = MaxPageSize
			}
		}
	}

	return params
}

// Page returns the page number (1-indexed).
func (p PaginationParams) Page() int { return p.page }

// PageSize returns the page size.
func (p PaginationParams) PageSize() int { return p.pageSize }

// Offset returns the offset for database queries.
func (p PaginationParams) Offset() int {
	return (p.page - 1) * p.pageSize
}

// Limit returns the limit for database queries.
func (p PaginationParams) Limit() int {
	return p.pageSize
}

// Options returns store options for database pagination.
func (p PaginationParams) Options() []store.Option {
	return []store.Option{store.WithLimit(p.Limit()), store.WithOffset(p.Offset())}
}

// Meta describes the page a list response holds.
type Meta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// Links point at neighbouring pages.
type Links struct {
	Self  string `json:"self"`
	First string `json:"first"`
	Last  string `json:"last,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

func totalPages(params PaginationParams, totalCount int64) int {
	if params.PageSize() <= 0 {
		return 0
	}
	return (int(totalCount) + params.PageSize() - 1) / params.PageSize()
}

// PaginationMeta builds the meta object from pagination params and total count.
func PaginationMeta(params PaginationParams, totalCount int64) Meta {
	return Meta{
		Page:       params.Page(),
		PageSize:   params.PageSize(),
		TotalCount: totalCount,
		TotalPages: totalPages(params, totalCount),
	}
}

// PaginationLinks builds page links from the request, params, and total count.
func PaginationLinks(r *http.Request, params PaginationParams, totalCount int64) Links {
	pages := totalPages(params, totalCount)

	buildURL := func(page int) string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(params.PageSize()))
		return fmt.Sprintf("%s?%s", r.URL.Path, q.Encode())
	}

	links := Links{
		Self:  buildURL(params.Page()),
		First: buildURL(1),
	}

	if pages > 0 {
		links.Last = buildURL(pages)
	}

	if params.Page() > 1 {
		links.Prev = buildURL(params.Page() - 1)
	}

	if params.Page() < pages {
		links.Next = buildURL(params.Page() + 1)
	}

	return links
}
