package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/craftcms/cmd/craftcms/middleware"
	"github.com/lgulliver/craftcms/cmd/craftcms/types"
	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/rs/zerolog/log"
)

// AuthRoutes sets up login and logout under the admin group
func AuthRoutes(admin *gin.RouterGroup, sessions SessionServiceInterface, authConfig *config.AuthConfig) {
	admin.POST("/login", handleLogin(sessions, authConfig))
	admin.POST("/logout", handleLogout(sessions, authConfig))
}

func handleLogin(sessions SessionServiceInterface, authConfig *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error(), Code: "invalid_input"})
			return
		}

		session, err := sessions.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, "login failed", err)
			return
		}

		setSessionCookie(c, authConfig, session.Token, int(authConfig.SessionTTL.Seconds()))
		c.JSON(http.StatusOK, types.LoginResponse{
			Token:     session.Token,
			UserID:    session.UserID,
			ExpiresAt: session.ExpiresAt,
		})
	}
}

func handleLogout(sessions SessionServiceInterface, authConfig *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := middleware.SessionToken(c, authConfig.CookieName); token != "" {
			// keep the cookie so the client can retry
			if err := sessions.Revoke(c.Request.Context(), token); err != nil {
				log.Error().Err(err).Msg("failed to revoke session on logout")
				respondError(c, "failed to log out", err)
				return
			}
		}

		setSessionCookie(c, authConfig, "", -1)
		c.JSON(http.StatusOK, types.SuccessResponse{Message: "logged out"})
	}
}

// setSessionCookie writes the session cookie. A negative maxAge clears it.
func setSessionCookie(c *gin.Context, authConfig *config.AuthConfig, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     authConfig.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   authConfig.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
