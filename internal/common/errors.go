package common

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Error kinds surfaced by the catalog, blob store, coordinator and session manager.
// Callers wrap them with fmt.Errorf("...: %w", err) and match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateSlug      = errors.New("slug already exists")
	ErrIOFailure          = errors.New("blob i/o failure")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInternal           = errors.New("internal failure")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("user already exists")
)

// HTTPStatus maps an error to the status class returned to clients
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateSlug), errors.Is(err, ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns a stable machine-readable code for an error
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateSlug):
		return "duplicate_slug"
	case errors.Is(err, ErrUserExists):
		return "user_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrIOFailure):
		return "io_failure"
	default:
		return "internal"
	}
}

// IsUniqueViolation recognises unique constraint failures from sqlite and postgres
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
