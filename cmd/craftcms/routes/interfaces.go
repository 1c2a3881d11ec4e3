package routes

import (
	"context"
	"io"

	"github.com/lgulliver/craftcms/internal/metadata"
	"github.com/lgulliver/craftcms/pkg/types"
)

// AssetServiceInterface defines the contract for the asset coordinator
type AssetServiceInterface interface {
	Create(ctx context.Context, input types.AssetInput, data []byte, mediaType string) (*types.Asset, error)
	Update(ctx context.Context, oldSlug string, input types.AssetInput, content *types.Upload) (*types.Asset, error)
	Delete(ctx context.Context, slug string) error
	Get(ctx context.Context, slug string) (*types.Asset, error)
	List(ctx context.Context) ([]*types.Asset, error)
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
}

// SessionServiceInterface defines the contract for the session manager
type SessionServiceInterface interface {
	Login(ctx context.Context, email, password string) (*types.SessionToken, error)
	Revoke(ctx context.Context, token string) error
	SessionUser(ctx context.Context, token string) (uint, bool, error)
}

// SearchServiceInterface defines the contract for metadata search
type SearchServiceInterface interface {
	Search(ctx context.Context, query *metadata.SearchQuery) (*metadata.SearchResults, error)
	Keywords(ctx context.Context) (map[string]int, error)
}
