package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/craftcms/cmd/craftcms/types"
	"github.com/lgulliver/craftcms/internal/common"
	"github.com/lgulliver/craftcms/internal/metadata"
	"github.com/lgulliver/craftcms/pkg/config"
)

// SearchRoutes sets up the public metadata search API
func SearchRoutes(router *gin.Engine, search SearchServiceInterface, site *config.SiteConfig) {
	api := router.Group("/api/v1")
	api.GET("/search", handleSearch(search, site))
	api.GET("/keywords", handleKeywords(search))
}

func handleSearch(search SearchServiceInterface, site *config.SiteConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query metadata.SearchQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid search query",
				Details: err.Error(),
				Code:    common.ErrorCode(common.ErrInvalidInput),
			})
			return
		}

		results, err := search.Search(c.Request.Context(), &query)
		if err != nil {
			respondError(c, "search failed", err)
			return
		}

		images := make([]types.ImageResponse, 0, len(results.Assets))
		for _, asset := range results.Assets {
			images = append(images, types.NewImageResponse(asset, site.ImageURL))
		}
		c.JSON(http.StatusOK, types.SearchResponse{
			Images:     images,
			Pagination: results.Pagination,
		})
	}
}

func handleKeywords(search SearchServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := search.Keywords(c.Request.Context())
		if err != nil {
			respondError(c, "failed to list keywords", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"keywords": counts})
	}
}
