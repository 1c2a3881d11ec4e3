package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/craftcms/cmd/craftcms/types"
	"github.com/lgulliver/craftcms/internal/common"
	"github.com/rs/zerolog/log"
)

const (
	userIDKey = "user_id"
	tokenKey  = "session_token"
)

// SessionAuth admits requests carrying a live session, taken from the session
// cookie or an Authorization: Bearer header.
func SessionAuth(sessions SessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "unauthorized", Code: "unauthorized"})
			c.Abort()
			return
		}

		userID, ok, err := sessions.SessionUser(c.Request.Context(), token)
		if err != nil {
			log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("session lookup failed")
			c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "session lookup failed", Code: common.ErrorCode(err)})
			c.Abort()
			return
		}
		if !ok {
			c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "unauthorized", Code: "unauthorized"})
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// SessionToken extracts the session token from the request, cookie first
func SessionToken(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// GetUserIDFromContext returns the authenticated user id set by SessionAuth
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}
