package types

import (
	"strings"

	"gopkg.in/guregu/null.v3"
)

const (
	DefaultSortColumn = "created_at"

	// MaxPage bounds the page number so that the row offset stays far from overflow.
	MaxPage = 1_000_000
)

var (
	// SortableColumns are the pattern columns a listing may be ordered by.
	SortableColumns = []string{"created_at", "updated_at", "title", "name", "author"}

	// SearchableColumns are the pattern columns free-text search may look into.
	SearchableColumns = []string{"title", "author", "name"}
)

// ListQuery carries paging, ordering and search options for listing a user's patterns.
type ListQuery struct {
	Page          int       `json:"page" validate:"gte=1,lte=1000000"`
	PageSize      int       `json:"page_size" validate:"gte=1"`
	SortColumn    string    `json:"sort_column" validate:"oneof=created_at updated_at title name author"`
	SortDirection string    `json:"sort_direction" validate:"caseinsensitiveoneof=asc desc ascending descending"`
	Search        string    `json:"search" validate:"max=100"`
	SearchColumns []string  `json:"search_columns" validate:"dive,oneof=title author name"`
	IsPublic      null.Bool `json:"is_public"`
}

// Normalize fills absent options with defaults and clamps the page size.
// Run it before validation so that absent values do not fail the gte rules.
func (q *ListQuery) Normalize(defaultPageSize, maxPageSize int) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if q.SortColumn == "" {
		q.SortColumn = DefaultSortColumn
	}
	if q.SortDirection == "" {
		q.SortDirection = "desc"
	}
	if len(q.SearchColumns) == 0 {
		q.SearchColumns = SearchableColumns
	}
}

func (q *ListQuery) Descending() bool {
	d := strings.ToLower(q.SortDirection)
	return d == "desc" || d == "descending"
}

func (q *ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}
