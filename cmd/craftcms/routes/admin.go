package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/craftcms/cmd/craftcms/middleware"
	"github.com/lgulliver/craftcms/cmd/craftcms/types"
	"github.com/lgulliver/craftcms/internal/common"
	pathcheck "github.com/lgulliver/craftcms/internal/middleware"
	"github.com/lgulliver/craftcms/internal/storage"
	"github.com/lgulliver/craftcms/pkg/config"
	pkgtypes "github.com/lgulliver/craftcms/pkg/types"
	"github.com/rs/zerolog/log"
)

var errUploadTooLarge = fmt.Errorf("%w: image too large", common.ErrInvalidInput)

// multipart framing allowance on top of the image limit
const formOverhead = 1 << 20

// AdminRoutes sets up the session-gated image management API
func AdminRoutes(admin *gin.RouterGroup, assets AssetServiceInterface, sessions SessionServiceInterface, authConfig *config.AuthConfig, site *config.SiteConfig) {
	images := admin.Group("/images")
	images.Use(middleware.SessionAuth(sessions, authConfig.CookieName))
	{
		images.GET("", handleListImages(assets, site))
		images.POST("", handleCreateImage(assets, authConfig, site))
		images.PUT("/:slug", pathcheck.PathParamValidation("slug"), handleUpdateImage(assets, authConfig, site))
		images.DELETE("/:slug", pathcheck.PathParamValidation("slug"), handleDeleteImage(assets))
	}
}

func handleCreateImage(assets AssetServiceInterface, authConfig *config.AuthConfig, site *config.SiteConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		input, upload, err := readImageForm(c, authConfig.MaxUploadBytes)
		if err != nil {
			respondFormError(c, err)
			return
		}
		if upload == nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "image is required", Code: "invalid_input"})
			return
		}

		asset, err := assets.Create(c.Request.Context(), input, upload.Data, upload.MediaType)
		if err != nil {
			respondError(c, "failed to create image", err)
			return
		}

		userID, _ := middleware.GetUserIDFromContext(c)
		log.Info().Uint("user_id", userID).Str("slug", asset.Slug).Msg("image created via admin api")
		c.JSON(http.StatusCreated, types.NewImageResponse(asset, site.ImageURL))
	}
}

func handleUpdateImage(assets AssetServiceInterface, authConfig *config.AuthConfig, site *config.SiteConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		input, upload, err := readImageForm(c, authConfig.MaxUploadBytes)
		if err != nil {
			respondFormError(c, err)
			return
		}

		asset, err := assets.Update(c.Request.Context(), c.Param("slug"), input, upload)
		if err != nil {
			respondError(c, "failed to update image", err)
			return
		}

		userID, _ := middleware.GetUserIDFromContext(c)
		log.Info().Uint("user_id", userID).Str("old_slug", c.Param("slug")).Str("slug", asset.Slug).Msg("image updated via admin api")
		c.JSON(http.StatusOK, types.NewImageResponse(asset, site.ImageURL))
	}
}

func handleDeleteImage(assets AssetServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		if err := assets.Delete(c.Request.Context(), slug); err != nil {
			respondError(c, "failed to delete image", err)
			return
		}

		userID, _ := middleware.GetUserIDFromContext(c)
		log.Info().Uint("user_id", userID).Str("slug", slug).Msg("image deleted via admin api")
		c.JSON(http.StatusOK, types.SuccessResponse{Message: "image deleted"})
	}
}

// readImageForm parses the multipart image form. The returned upload is nil
// when no image part, or an empty one, was sent.
func readImageForm(c *gin.Context, maxBytes int64) (pkgtypes.AssetInput, *pkgtypes.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverhead)

	var input pkgtypes.AssetInput
	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return input, nil, errUploadTooLarge
		}
		return input, nil, fmt.Errorf("%w: malformed form: %v", common.ErrInvalidInput, err)
	}

	input = pkgtypes.AssetInput{
		Alt:         c.PostForm("alt"),
		Description: c.PostForm("description"),
		Slug:        c.PostForm("slug"),
		Keywords:    pkgtypes.ParseKeywords(c.PostForm("keywords")),
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return input, nil, nil
		}
		return input, nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if fileHeader.Size > maxBytes {
		return input, nil, errUploadTooLarge
	}
	if fileHeader.Size == 0 {
		return input, nil, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return input, nil, fmt.Errorf("%w: failed to open upload: %v", common.ErrInternal, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return input, nil, fmt.Errorf("%w: failed to read upload: %v", common.ErrInternal, err)
	}

	return input, &pkgtypes.Upload{
		Data:      data,
		MediaType: storage.DetectMediaType(fileHeader.Header.Get("Content-Type"), data),
	}, nil
}

func respondFormError(c *gin.Context, err error) {
	if errors.Is(err, errUploadTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{Error: "image too large", Code: "invalid_input"})
		return
	}
	respondError(c, "invalid image form", err)
}
