package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lgulliver/craftcms/internal/common"
	"github.com/lgulliver/craftcms/pkg/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Store is the data-access layer for asset rows. It knows nothing about files.
// Each method is a single statement executed under the database lock.
type Store struct {
	db *common.Database
}

// NewStore creates a new catalog store
func NewStore(db *common.Database) *Store {
	return &Store{db: db}
}

// Create inserts a new asset row
func (s *Store) Create(ctx context.Context, asset *types.Asset) error {
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Create(asset).Error
	})
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", common.ErrDuplicateSlug, asset.Slug)
		}
		log.Error().Err(err).Str("slug", asset.Slug).Msg("failed to insert asset")
		return fmt.Errorf("%w: failed to insert asset: %v", common.ErrInternal, err)
	}

	log.Debug().Str("slug", asset.Slug).Str("filename", asset.Filename).Msg("asset row created")
	return nil
}

// GetBySlug returns the asset with the given slug
func (s *Store) GetBySlug(ctx context.Context, slug string) (*types.Asset, error) {
	var asset types.Asset
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Where("slug = ?", slug).First(&asset).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: asset %s", common.ErrNotFound, slug)
		}
		return nil, fmt.Errorf("%w: failed to get asset: %v", common.ErrInternal, err)
	}
	return &asset, nil
}

// Update overwrites the metadata and filename of the row currently keyed by oldSlug
func (s *Store) Update(ctx context.Context, oldSlug string, asset *types.Asset) error {
	asset.UpdatedAt = time.Now()

	var rows int64
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&types.Asset{}).
			Where("slug = ?", oldSlug).
			Select("alt", "description", "slug", "keywords", "filename", "updated_at").
			Updates(asset)
		rows = result.RowsAffected
		return result.Error
	})
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", common.ErrDuplicateSlug, asset.Slug)
		}
		log.Error().Err(err).Str("slug", oldSlug).Msg("failed to update asset")
		return fmt.Errorf("%w: failed to update asset: %v", common.ErrInternal, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: asset %s", common.ErrNotFound, oldSlug)
	}
	return nil
}

// Delete removes the row keyed by slug
func (s *Store) Delete(ctx context.Context, slug string) error {
	var rows int64
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		result := tx.Where("slug = ?", slug).Delete(&types.Asset{})
		rows = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete asset: %v", common.ErrInternal, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: asset %s", common.ErrNotFound, slug)
	}
	return nil
}

// ListAll returns every asset, newest first. Ties on created_at are broken by
// id so repeated calls over the same data return the same order.
func (s *Store) ListAll(ctx context.Context) ([]*types.Asset, error) {
	var assets []*types.Asset
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Order("created_at DESC").Order("id DESC").Find(&assets).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list assets: %v", common.ErrInternal, err)
	}
	return assets, nil
}

// Filenames maps every stored filename to the slug referencing it
func (s *Store) Filenames(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Slug     string
		Filename string
	}
	err := s.db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Model(&types.Asset{}).Select("slug", "filename").Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list filenames: %v", common.ErrInternal, err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Filename] = r.Slug
	}
	return out, nil
}
