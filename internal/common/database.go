package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/lgulliver/craftcms/pkg/types"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the single catalog connection. Every statement goes through Do,
// which holds mu, so only one catalog call is in flight process-wide.
type Database struct {
	conn *gorm.DB
	mu   sync.Mutex
}

// NewDatabase opens the catalog. A sqlite Path of ":memory:" gives a private
// in-memory catalog, which is what the tests use.
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := logger.Silent
	if cfg.LogSQL {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	log.Info().Str("driver", db.Dialector.Name()).Msg("catalog database connected")
	return &Database{conn: db}, nil
}

// Do runs fn with exclusive access to the connection. Do is not reentrant.
func (db *Database) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.conn.WithContext(ctx))
}

// Migrate runs database migrations
func (db *Database) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.AutoMigrate(
		&types.Asset{},
		&types.User{},
		&types.Session{},
	)
}

// Close closes the database connection
func (db *Database) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
