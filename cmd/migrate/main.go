package main

import (
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/lgulliver/craftcms/pkg/migrate"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	var (
		configPath = flag.String("config", "craftcms.yaml", "Path to the YAML config file")
		up         = flag.Bool("up", false, "Run pending migrations")
		down       = flag.Bool("down", false, "Roll back the last migration")
		status     = flag.Bool("status", false, "List migrations and whether they are applied")
	)
	flag.Parse()

	if !*up && !*down && !*status {
		fmt.Printf("Usage: %s [-config file] [-up | -down | -status]\n", os.Args[0])
		fmt.Println("  -up      Run pending migrations")
		fmt.Println("  -down    Roll back the last migration")
		fmt.Println("  -status  List migrations and whether they are applied")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.Logging.SetupLogging()

	migrator, err := migrate.NewMigrator(&cfg.Database, migrationsFS, "migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}
	defer migrator.Close()

	switch {
	case *status:
		migrations, applied, err := migrator.Status()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read migration status")
		}
		pending := make(map[int]bool)
		for _, m := range migrate.Pending(migrations, applied) {
			pending[m.Version] = true
		}
		for _, m := range migrations {
			state := "applied"
			if pending[m.Version] {
				state = "pending"
			}
			fmt.Printf("%03d  %-30s %s\n", m.Version, m.Name, state)
		}
	case *up:
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Migrations completed successfully")
	case *down:
		if err := migrator.Down(); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migration")
		}
		log.Info().Msg("Rollback completed successfully")
	}
}
