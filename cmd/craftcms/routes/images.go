package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/craftcms/cmd/craftcms/types"
	pathcheck "github.com/lgulliver/craftcms/internal/middleware"
	"github.com/lgulliver/craftcms/internal/storage"
	"github.com/lgulliver/craftcms/pkg/config"
	pkgtypes "github.com/lgulliver/craftcms/pkg/types"
)

// PublicRoutes sets up the unauthenticated read API and blob serving
func PublicRoutes(router *gin.Engine, assets AssetServiceInterface, site *config.SiteConfig) {
	api := router.Group("/api/v1")
	api.GET("/images", handleListImages(assets, site))
	api.GET("/images/:slug", pathcheck.PathParamValidation("slug"), handleGetImage(assets, site))

	router.GET("/"+strings.Trim(site.ImagesPath, "/")+"/:filename", pathcheck.PathParamValidation("filename"), handleServeImage(assets))
}

func handleListImages(assets AssetServiceInterface, site *config.SiteConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := assets.List(c.Request.Context())
		if err != nil {
			respondError(c, "failed to list images", err)
			return
		}
		c.JSON(http.StatusOK, newImageList(list, site))
	}
}

func handleGetImage(assets AssetServiceInterface, site *config.SiteConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		asset, err := assets.Get(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondError(c, "image not found", err)
			return
		}
		c.JSON(http.StatusOK, types.NewImageResponse(asset, site.ImageURL))
	}
}

func handleServeImage(assets AssetServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename := c.Param("filename")

		content, err := assets.Open(c.Request.Context(), filename)
		if err != nil {
			respondError(c, "image not found", err)
			return
		}
		defer content.Close()

		c.Header("Cache-Control", "public, max-age=3600")
		c.DataFromReader(http.StatusOK, -1, storage.ContentTypeOf(filename), content, nil)
	}
}

func newImageList(assets []*pkgtypes.Asset, site *config.SiteConfig) types.ImageListResponse {
	images := make([]types.ImageResponse, 0, len(assets))
	for _, asset := range assets {
		images = append(images, types.NewImageResponse(asset, site.ImageURL))
	}
	return types.ImageListResponse{Images: images, Total: len(images)}
}
