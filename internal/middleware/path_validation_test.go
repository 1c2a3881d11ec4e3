package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/images/:filename", PathParamValidation("filename"), func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("filename"))
	})
	return router
}

func TestPathParamValidation(t *testing.T) {
	router := setupRouter()

	tests := []struct {
		name     string
		path     string
		expected int
	}{
		{"plain filename", "/images/cat-1.jpg", http.StatusOK},
		{"dotted slug", "/images/cat.v2.png", http.StatusOK},
		{"parent reference", "/images/..", http.StatusBadRequest},
		{"embedded dots", "/images/a..b.jpg", http.StatusBadRequest},
		{"encoded backslash", "/images/a%5Cb.jpg", http.StatusBadRequest},
		{"encoded null", "/images/a%00.jpg", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			if tt.expected == http.StatusBadRequest {
				assert.Contains(t, w.Body.String(), "invalid_input")
			}
		})
	}
}

func TestValidSegment(t *testing.T) {
	assert.True(t, validSegment("cat-1.jpg"))
	assert.False(t, validSegment(""))
	assert.False(t, validSegment("a/b"))
	assert.False(t, validSegment(".."))
}
