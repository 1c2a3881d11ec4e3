package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestHTTPStatusAndErrorCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("%w: asset cat-1", ErrNotFound), http.StatusNotFound, "not_found"},
		{"duplicate slug", fmt.Errorf("%w: cat-1", ErrDuplicateSlug), http.StatusConflict, "duplicate_slug"},
		{"user exists", fmt.Errorf("%w: admin@example.com", ErrUserExists), http.StatusConflict, "user_exists"},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"invalid input", fmt.Errorf("%w: alt is required", ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"io failure", fmt.Errorf("%w: disk full", ErrIOFailure), http.StatusInternalServerError, "io_failure"},
		{"internal", fmt.Errorf("%w: boom", ErrInternal), http.StatusInternalServerError, "internal"},
		{"unclassified", errors.New("something else"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.code, ErrorCode(tt.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: assets.slug")))
	assert.True(t, IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_assets_slug" (SQLSTATE 23505)`)))
	assert.False(t, IsUniqueViolation(errors.New("database is locked")))
}
