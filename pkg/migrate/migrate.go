package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/lgulliver/craftcms/pkg/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Migrator applies the versioned SQL schema to a postgres catalog
type Migrator struct {
	db            *sql.DB
	migrationsFS  fs.FS
	migrationsDir string
}

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// NewMigrator connects to the configured postgres catalog
func NewMigrator(cfg *config.DatabaseConfig, migrationsFS fs.FS, migrationsDir string) (*Migrator, error) {
	if cfg.Driver != "postgres" {
		return nil, fmt.Errorf("SQL migrations target postgres, got driver %q (sqlite catalogs are migrated by init-db)", cfg.Driver)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Migrator{
		db:            db,
		migrationsFS:  migrationsFS,
		migrationsDir: migrationsDir,
	}, nil
}

// LoadMigrations reads every NNN_name.sql file in dir, ordered by version.
// Files that do not follow the naming scheme are skipped.
func LoadMigrations(migrationsFS fs.FS, dir string) ([]*Migration, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []*Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		migration, err := ParseMigration(entry.Name(), string(content))
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping invalid migration file")
			continue
		}
		if other, dup := seen[migration.Version]; dup {
			return nil, fmt.Errorf("migration version %d used by both %s and %s", migration.Version, other, entry.Name())
		}
		seen[migration.Version] = entry.Name()

		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// ParseMigration builds a migration from its filename (e.g. "001_initial_schema.sql")
// and content split by the up/down markers
func ParseMigration(filename, content string) (*Migration, error) {
	prefix, rest, ok := strings.Cut(filename, "_")
	if !ok || rest == "" {
		return nil, fmt.Errorf("invalid migration filename format: %s", filename)
	}

	version, err := strconv.Atoi(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version from filename %s: %w", filename, err)
	}

	upSQL, downSQL := splitMigration(content)
	if strings.TrimSpace(upSQL) == "" {
		return nil, fmt.Errorf("migration %s has no up section", filename)
	}

	return &Migration{
		Version: version,
		Name:    strings.TrimSuffix(rest, ".sql"),
		UpSQL:   upSQL,
		DownSQL: downSQL,
	}, nil
}

// splitMigration splits migration content into up and down parts
func splitMigration(content string) (string, string) {
	var upLines, downLines []string
	var inDown bool

	for _, line := range strings.Split(content, "\n") {
		switch strings.TrimSpace(line) {
		case upMarker:
			inDown = false
			continue
		case downMarker:
			inDown = true
			continue
		}

		if inDown {
			downLines = append(downLines, line)
		} else {
			upLines = append(upLines, line)
		}
	}

	return strings.TrimSpace(strings.Join(upLines, "\n")), strings.TrimSpace(strings.Join(downLines, "\n"))
}

// Pending returns the migrations whose version is not in applied
func Pending(migrations []*Migration, applied []int) []*Migration {
	appliedMap := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedMap[version] = true
	}

	var pending []*Migration
	for _, migration := range migrations {
		if !appliedMap[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending
}

// EnsureMigrationsTable creates the migrations tracking table if it doesn't exist
func (m *Migrator) EnsureMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`

	if _, err := m.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns a list of applied migration versions
func (m *Migrator) GetAppliedMigrations() ([]int, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions = append(versions, version)
	}

	return versions, rows.Err()
}

// Status returns every known migration and the versions already applied
func (m *Migrator) Status() ([]*Migration, []int, error) {
	if err := m.EnsureMigrationsTable(); err != nil {
		return nil, nil, err
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return nil, nil, err
	}

	migrations, err := LoadMigrations(m.migrationsFS, m.migrationsDir)
	if err != nil {
		return nil, nil, err
	}
	return migrations, applied, nil
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	migrations, applied, err := m.Status()
	if err != nil {
		return err
	}

	pending := Pending(migrations, applied)
	if len(pending) == 0 {
		log.Info().Msg("no pending migrations")
		return nil
	}

	log.Info().Int("count", len(pending)).Msg("running pending migrations")

	for _, migration := range pending {
		if err := m.runMigration(migration.UpSQL, func(tx *sql.Tx) error {
			_, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", migration.Version, migration.Name)
			return err
		}); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		log.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("applied migration")
	}

	return nil
}

// Down rolls back the last migration
func (m *Migrator) Down() error {
	migrations, applied, err := m.Status()
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		log.Info().Msg("no migrations to roll back")
		return nil
	}

	lastVersion := applied[len(applied)-1]

	var target *Migration
	for _, migration := range migrations {
		if migration.Version == lastVersion {
			target = migration
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration file for version %d not found", lastVersion)
	}

	if err := m.runMigration(target.DownSQL, func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM schema_migrations WHERE version = $1", target.Version)
		return err
	}); err != nil {
		return fmt.Errorf("failed to roll back migration %d (%s): %w", target.Version, target.Name, err)
	}

	log.Info().Int("version", target.Version).Str("name", target.Name).Msg("rolled back migration")
	return nil
}

// runMigration executes statement and the bookkeeping in one transaction
func (m *Migrator) runMigration(statement string, record func(tx *sql.Tx) error) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(statement); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if err := record(tx); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// Close closes the database connection
func (m *Migrator) Close() error {
	return m.db.Close()
}
