package main

import (
	"fmt"
	"os"

	"github.com/lgulliver/craftcms/internal/assets"
	"github.com/lgulliver/craftcms/internal/auth"
	"github.com/lgulliver/craftcms/internal/catalog"
	"github.com/lgulliver/craftcms/internal/common"
	"github.com/lgulliver/craftcms/internal/metadata"
	"github.com/lgulliver/craftcms/internal/storage"
	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "craftcms",
	Short: "CraftCMS - image asset service",
	Long: "CraftCMS serves image assets and an authenticated admin API for managing them.\n\n" +
		"Configuration is read from a YAML file, a .env file and the environment, in that order.",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "craftcms.yaml", "path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// app holds the wired services shared by every command
type app struct {
	cfg    *config.Config
	db     *common.Database
	cache  *common.Cache
	assets *assets.Service
	auth   *auth.Service
	search *metadata.Service
}

// newApp loads configuration and opens the catalog, cache and blob store
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Logging.SetupLogging()

	return newAppFromConfig(cfg)
}

func newAppFromConfig(cfg *config.Config) (*app, error) {
	db, err := common.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var cache *common.Cache
	if cfg.Redis.Enabled() {
		cache, err = common.NewCache(&cfg.Redis)
		if err != nil {
			db.Close()
			return nil, err
		}
	} else {
		log.Debug().Msg("redis not configured, sessions are served from the catalog only")
	}

	blobs, err := storage.NewStorageFactory(&cfg.Storage).CreateStorage()
	if err != nil {
		db.Close()
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &app{
		cfg:    cfg,
		db:     db,
		cache:  cache,
		assets: assets.NewService(catalog.NewStore(db), blobs),
		auth:   auth.NewService(db, cache, &cfg.Auth),
		search: metadata.NewService(db),
	}, nil
}

// Close releases the catalog and cache connections
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis connection")
		}
	}
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
}
