package storage

import (
	"fmt"
	"strings"

	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/rs/zerolog/log"
)

// StorageFactory builds the blob store named by storage.type
type StorageFactory struct {
	config *config.StorageConfig
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(config *config.StorageConfig) *StorageFactory {
	return &StorageFactory{config: config}
}

// CreateStorage returns the configured blob store. Only "local" exists; an
// empty type means local.
func (sf *StorageFactory) CreateStorage() (BlobStore, error) {
	kind := strings.ToLower(strings.TrimSpace(sf.config.Type))

	switch kind {
	case "", "local":
		if strings.TrimSpace(sf.config.LocalPath) == "" {
			return nil, fmt.Errorf("storage.local_path is required for local storage")
		}
		store, err := NewLocalStorage(sf.config.LocalPath)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("type", "local").Str("path", store.BasePath()).Msg("blob store selected")
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", sf.config.Type)
	}
}
