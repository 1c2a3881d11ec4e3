package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lgulliver/craftcms/internal/common"
	"github.com/lgulliver/craftcms/pkg/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// both sides are folded by the database so case handling matches the column
const likeClause = "LIKE LOWER(?) ESCAPE '\\'"

// Service answers read-only searches over asset metadata
type Service struct {
	db *common.Database
}

// NewService creates a new metadata search service
func NewService(db *common.Database) *Service {
	return &Service{db: db}
}

// Search returns one page of assets matching query
func (s *Service) Search(ctx context.Context, query *SearchQuery) (*SearchResults, error) {
	query.normalize()

	var assets []*types.Asset
	var total int64

	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		db := tx.Model(&types.Asset{})

		if query.Query != "" {
			term := "%" + escapeLike(query.Query) + "%"
			encoded := "%" + escapeLike(jsonFragment(query.Query)) + "%"
			db = db.Where(
				"LOWER(alt) "+likeClause+" OR LOWER(description) "+likeClause+
					" OR LOWER(slug) "+likeClause+" OR LOWER(keywords) "+likeClause,
				term, term, term, encoded,
			)
		}

		// keywords are stored as a JSON array, so a quoted match is an exact keyword
		for _, keyword := range query.Keywords {
			keyword = strings.TrimSpace(keyword)
			if keyword == "" {
				continue
			}
			quoted := `%"` + escapeLike(jsonFragment(keyword)) + `"%`
			db = db.Where("LOWER(keywords) "+likeClause, quoted)
		}

		if err := db.Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count search results: %w", err)
		}

		offset := (query.Page - 1) * query.PerPage
		return db.Order(query.orderClause()).Offset(offset).Limit(query.PerPage).Find(&assets).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search assets: %v", common.ErrInternal, err)
	}

	totalPages := int((total + int64(query.PerPage) - 1) / int64(query.PerPage))

	log.Debug().
		Str("query", query.Query).
		Strs("keywords", query.Keywords).
		Int64("total", total).
		Msg("asset search")

	return &SearchResults{
		Assets: assets,
		Pagination: types.PaginationInfo{
			Page:       query.Page,
			PerPage:    query.PerPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// Keywords returns every distinct keyword with the number of assets using it
func (s *Service) Keywords(ctx context.Context) (map[string]int, error) {
	var rows []*types.Asset
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Select("keywords").Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load keywords: %v", common.ErrInternal, err)
	}

	counts := make(map[string]int)
	for _, row := range rows {
		seen := make(map[string]bool, len(row.Keywords))
		for _, keyword := range row.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" || seen[keyword] {
				continue
			}
			seen[keyword] = true
			counts[keyword]++
		}
	}
	return counts, nil
}

// jsonFragment returns s as it appears inside the stored JSON keyword array,
// with the same escaping the serializer applies (e.g. & becomes \u0026).
func jsonFragment(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return strings.TrimSuffix(strings.TrimPrefix(string(encoded), `"`), `"`)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
