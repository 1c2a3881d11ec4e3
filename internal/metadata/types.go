package metadata

import (
	"strings"

	"github.com/lgulliver/craftcms/pkg/types"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// SearchQuery represents a search over asset metadata
type SearchQuery struct {
	Query     string   `json:"query" form:"q"`               // matched against alt, description, slug and keywords
	Keywords  []string `json:"keywords" form:"keyword"`      // every keyword must be present
	SortBy    string   `json:"sort_by" form:"sort_by"`       // created_at, updated_at or slug
	SortOrder string   `json:"sort_order" form:"sort_order"` // asc or desc
	Page      int      `json:"page" form:"page"`             // 1-based
	PerPage   int      `json:"per_page" form:"per_page"`
}

// SearchResults represents one page of matching assets
type SearchResults struct {
	Assets     []*types.Asset       `json:"assets"`
	Pagination types.PaginationInfo `json:"pagination"`
}

// normalize fills defaults and clamps paging
func (q *SearchQuery) normalize() {
	q.Query = strings.TrimSpace(q.Query)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
}

// orderClause maps the requested sort onto a column. Unknown fields sort by
// creation time.
func (q *SearchQuery) orderClause() string {
	column := "created_at"
	switch q.SortBy {
	case "slug", "updated_at":
		column = q.SortBy
	}
	direction := strings.ToUpper(q.SortOrder)
	return column + " " + direction + ", id " + direction
}
