package types

import (
	"time"

	"github.com/lgulliver/craftcms/internal/common"
	pkgtypes "github.com/lgulliver/craftcms/pkg/types"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// NewErrorResponse builds an ErrorResponse from a classified error
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Code = common.ErrorCode(err)
	}
	return resp
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// LoginRequest is the body of POST /admin/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImageResponse is an asset as exposed over the API
type ImageResponse struct {
	Slug        string    `json:"slug"`
	Alt         string    `json:"alt"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewImageResponse converts an asset, resolving its public URL with urlFor
func NewImageResponse(asset *pkgtypes.Asset, urlFor func(filename string) string) ImageResponse {
	keywords := asset.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return ImageResponse{
		Slug:        asset.Slug,
		Alt:         asset.Alt,
		Description: asset.Description,
		Keywords:    keywords,
		Filename:    asset.Filename,
		URL:         urlFor(asset.Filename),
		CreatedAt:   asset.CreatedAt,
		UpdatedAt:   asset.UpdatedAt,
	}
}

// ImageListResponse wraps a listing
type ImageListResponse struct {
	Images []ImageResponse `json:"images"`
	Total  int             `json:"total"`
}

// SearchResponse is one page of search results
type SearchResponse struct {
	Images     []ImageResponse         `json:"images"`
	Pagination pkgtypes.PaginationInfo `json:"pagination"`
}
