package types

import (
	"fmt"
	"strings"
	"time"
)

// Asset is the catalog record describing an image
type Asset struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	Alt         string    `json:"alt" gorm:"not null"`
	Description string    `json:"description"`
	Slug        string    `json:"slug" gorm:"uniqueIndex;not null"`
	Keywords    []string  `json:"keywords" gorm:"serializer:json"`
	Filename    string    `json:"filename" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is an admin credential owner
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a time-bounded grant issued after a successful login
type Session struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	Token     string    `json:"-" gorm:"uniqueIndex;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
}

// SessionToken is what a successful login hands back to the client
type SessionToken struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AssetInput carries caller-supplied asset metadata
type AssetInput struct {
	Alt         string   `json:"alt"`
	Description string   `json:"description"`
	Slug        string   `json:"slug"`
	Keywords    []string `json:"keywords"`
}

// Validate checks the required fields. The slug doubles as a filename so it
// may not contain separators, NUL or "..", and may not carry surrounding
// whitespace. Any other character is accepted.
func (in AssetInput) Validate() error {
	if strings.TrimSpace(in.Alt) == "" {
		return fmt.Errorf("alt is required")
	}
	if in.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if strings.Contains(in.Slug, "..") || strings.ContainsAny(in.Slug, "/\\\x00") ||
		strings.TrimSpace(in.Slug) != in.Slug {
		return fmt.Errorf("invalid slug %q", in.Slug)
	}
	return nil
}

// Upload is replacement content for an asset
type Upload struct {
	Data      []byte
	MediaType string
}

// ParseKeywords splits a comma separated keyword list, trimming entries and
// dropping empty ones.
func ParseKeywords(s string) []string {
	keywords := []string{}
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// ReconcileReport lists disagreements between the catalog and the blob store
type ReconcileReport struct {
	// OrphanBlobs are files with no catalog row
	OrphanBlobs []string `json:"orphan_blobs"`
	// DanglingAssets are slugs whose stored file is missing
	DanglingAssets []string `json:"dangling_assets"`
	// Removed lists orphan blobs deleted during a repair pass
	Removed []string `json:"removed,omitempty"`
}

// Consistent reports whether nothing was found
func (r *ReconcileReport) Consistent() bool {
	return len(r.OrphanBlobs) == 0 && len(r.DanglingAssets) == 0
}

// PaginationInfo describes one page of a larger result set
type PaginationInfo struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}
