package common

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/lgulliver/craftcms/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNewDatabase_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "craftcms.db")

	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	assert.FileExists(t, path)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDatabase_DoSerializesAccess(t *testing.T) {
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			err := db.Do(ctx, func(tx *gorm.DB) error {
				return tx.Create(&types.User{
					Email:        "user" + string(rune('a'+i)) + "@example.com",
					PasswordHash: "x",
				}).Error
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Do(ctx, func(tx *gorm.DB) error {
		return tx.Model(&types.User{}).Count(&count).Error
	}))
	assert.Equal(t, int64(writers), count)
}

func TestDatabase_DoReturnsCallbackError(t *testing.T) {
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	err = db.Do(context.Background(), func(tx *gorm.DB) error {
		return gorm.ErrRecordNotFound
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
