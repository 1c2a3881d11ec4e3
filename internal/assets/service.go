package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/lgulliver/craftcms/internal/common"
	"github.com/lgulliver/craftcms/internal/storage"
	"github.com/lgulliver/craftcms/pkg/types"
	"github.com/lgulliver/craftcms/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Catalog is the subset of the catalog store the coordinator depends on
type Catalog interface {
	Create(ctx context.Context, asset *types.Asset) error
	GetBySlug(ctx context.Context, slug string) (*types.Asset, error)
	Update(ctx context.Context, oldSlug string, asset *types.Asset) error
	Delete(ctx context.Context, slug string) error
	ListAll(ctx context.Context) ([]*types.Asset, error)
	Filenames(ctx context.Context) (map[string]string, error)
}

// Service keeps the catalog and the blob store in agreement. Writes are
// ordered blob first, row second, and a failed row write removes the blob
// it just wrote. Mutating operations run one at a time, so a pre-check and
// the writes that follow it cannot interleave with another operation.
type Service struct {
	catalog Catalog
	blobs   storage.BlobStore

	mu sync.Mutex
}

// NewService creates a new asset service
func NewService(catalog Catalog, blobs storage.BlobStore) *Service {
	return &Service{
		catalog: catalog,
		blobs:   blobs,
	}
}

// Create stores data as a new asset
func (s *Service) Create(ctx context.Context, input types.AssetInput, data []byte, mediaType string) (*types.Asset, error) {
	// Once started, a write runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info().
		Str("slug", input.Slug).
		Str("media_type", mediaType).
		Str("size", utils.FormatBytes(int64(len(data)))).
		Msg("creating asset")

	// A save under an existing slug would replace the live asset's file.
	if _, err := s.catalog.GetBySlug(ctx, input.Slug); err == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrDuplicateSlug, input.Slug)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	filename, err := s.blobs.Save(ctx, data, input.Slug, mediaType)
	if err != nil {
		return nil, err
	}

	asset := &types.Asset{
		Alt:         input.Alt,
		Description: input.Description,
		Slug:        input.Slug,
		Keywords:    keywordsOrEmpty(input.Keywords),
		Filename:    filename,
	}

	if err := s.catalog.Create(ctx, asset); err != nil {
		if cerr := s.blobs.Delete(ctx, filename); cerr != nil {
			log.Error().Err(cerr).
				Str("slug", input.Slug).
				Str("filename", filename).
				Msg("compensation failed: orphan blob left behind")
		}
		return nil, err
	}

	log.Info().Str("slug", asset.Slug).Str("filename", asset.Filename).Msg("asset created")
	return asset, nil
}

// Update replaces the metadata of the asset at oldSlug and optionally its
// content. A slug change without new content renames the existing file.
func (s *Service) Update(ctx context.Context, oldSlug string, input types.AssetInput, content *types.Upload) (*types.Asset, error) {
	ctx = context.WithoutCancel(ctx)

	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.catalog.GetBySlug(ctx, oldSlug)
	if err != nil {
		return nil, err
	}

	slugChanged := input.Slug != oldSlug
	if slugChanged {
		if _, err := s.catalog.GetBySlug(ctx, input.Slug); err == nil {
			return nil, fmt.Errorf("%w: %s", common.ErrDuplicateSlug, input.Slug)
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}

	filename := existing.Filename
	switch {
	case content != nil:
		if err := s.blobs.Delete(ctx, existing.Filename); err != nil {
			return nil, err
		}
		filename, err = s.blobs.Save(ctx, content.Data, input.Slug, content.MediaType)
		if err != nil {
			log.Error().Err(err).
				Str("slug", oldSlug).
				Str("filename", existing.Filename).
				Msg("replacement content failed to save; asset has no file")
			return nil, err
		}
	case slugChanged:
		filename, err = s.blobs.Rename(ctx, existing.Filename, input.Slug)
		if err != nil {
			return nil, err
		}
	}

	updated := &types.Asset{
		Alt:         input.Alt,
		Description: input.Description,
		Slug:        input.Slug,
		Keywords:    keywordsOrEmpty(input.Keywords),
		Filename:    filename,
	}
	if err := s.catalog.Update(ctx, oldSlug, updated); err != nil {
		log.Error().Err(err).
			Str("slug", oldSlug).
			Str("filename", filename).
			Msg("catalog update failed after blob change")
		return nil, err
	}

	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	log.Info().
		Str("old_slug", oldSlug).
		Str("slug", updated.Slug).
		Str("filename", updated.Filename).
		Bool("content_replaced", content != nil).
		Msg("asset updated")
	return updated, nil
}

// Delete removes the asset's file and then its row
func (s *Service) Delete(ctx context.Context, slug string) error {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.catalog.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, existing.Filename); err != nil {
		return err
	}

	if err := s.catalog.Delete(ctx, slug); err != nil {
		return err
	}

	log.Info().Str("slug", slug).Str("filename", existing.Filename).Msg("asset deleted")
	return nil
}

// Get returns the asset with the given slug
func (s *Service) Get(ctx context.Context, slug string) (*types.Asset, error) {
	return s.catalog.GetBySlug(ctx, slug)
}

// List returns every asset, newest first
func (s *Service) List(ctx context.Context) ([]*types.Asset, error) {
	return s.catalog.ListAll(ctx)
}

// Open returns the stored bytes for a filename
func (s *Service) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	return s.blobs.Open(ctx, filename)
}

// Reconcile compares stored files with catalog rows. Files no row points at
// are orphans; rows whose file is gone are dangling. With repair set,
// orphan files are deleted. Dangling rows are only reported.
func (s *Service) Reconcile(ctx context.Context, repair bool) (*types.ReconcileReport, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	startTime := time.Now()

	referenced, err := s.catalog.Filenames(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := s.blobs.List(ctx)
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]bool, len(stored))
	report := &types.ReconcileReport{
		OrphanBlobs:    []string{},
		DanglingAssets: []string{},
	}

	for _, filename := range stored {
		onDisk[filename] = true
		if _, ok := referenced[filename]; !ok {
			report.OrphanBlobs = append(report.OrphanBlobs, filename)
		}
	}
	for filename, slug := range referenced {
		if !onDisk[filename] {
			report.DanglingAssets = append(report.DanglingAssets, slug)
		}
	}
	sort.Strings(report.OrphanBlobs)
	sort.Strings(report.DanglingAssets)

	if repair {
		for _, filename := range report.OrphanBlobs {
			if err := s.blobs.Delete(ctx, filename); err != nil {
				log.Error().Err(err).Str("filename", filename).Msg("failed to remove orphan blob")
				continue
			}
			report.Removed = append(report.Removed, filename)
		}
	}

	event := log.Info()
	if !report.Consistent() {
		event = log.Warn()
	}
	event.
		Int("orphan_blobs", len(report.OrphanBlobs)).
		Int("dangling_assets", len(report.DanglingAssets)).
		Int("removed", len(report.Removed)).
		Bool("repair", repair).
		Dur("duration", time.Since(startTime)).
		Msg("reconciliation finished")

	return report, nil
}

func keywordsOrEmpty(keywords []string) []string {
	if keywords == nil {
		return []string{}
	}
	return keywords
}
