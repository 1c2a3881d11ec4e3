package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/craftcms/cmd/craftcms/middleware"
	"github.com/lgulliver/craftcms/cmd/craftcms/routes"
	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().Str("site", a.cfg.Site.Name).Msg("starting craftcms")

	if a.cfg.Storage.ReconcileOnStart {
		if _, err := a.assets.Reconcile(cmd.Context(), false); err != nil {
			log.Error().Err(err).Msg("startup reconciliation failed")
		}
	}

	server := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      newHandler(a.cfg, newRouter(a.cfg, a.assets, a.auth, a.search)),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}
	log.Info().Msg("server shutdown complete")
	return nil
}

func newRouter(cfg *config.Config, assetService routes.AssetServiceInterface, sessionService routes.SessionServiceInterface, searchService routes.SearchServiceInterface) *gin.Engine {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.Auth.MaxUploadBytes

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "craftcms",
			"time":    time.Now().UTC(),
		})
	})

	routes.PublicRoutes(router, assetService, &cfg.Site)
	routes.SearchRoutes(router, searchService, &cfg.Site)

	admin := router.Group("/admin")
	routes.AuthRoutes(admin, sessionService, &cfg.Auth)
	routes.AdminRoutes(admin, assetService, sessionService, &cfg.Auth, &cfg.Site)

	return router
}

// newHandler wraps the router with CORS. With no configured origins only
// same-origin requests are served.
func newHandler(cfg *config.Config, router http.Handler) http.Handler {
	if len(cfg.Server.AllowedOrigins) == 0 {
		return router
	}
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)
}
