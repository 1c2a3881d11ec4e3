package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PathParamValidation rejects requests whose named route parameters could
// escape a single path segment. Slugs and filenames are both used to build
// file paths, so neither may be empty or contain separators or "..".
func PathParamValidation(params ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range params {
			value := c.Param(name)
			if validSegment(value) {
				continue
			}

			log.Warn().
				Str("param", name).
				Str("value", value).
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP()).
				Msg("rejected unsafe path parameter")
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid " + name,
				"code":  "invalid_input",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func validSegment(value string) bool {
	if value == "" || strings.Contains(value, "..") {
		return false
	}
	return !strings.ContainsAny(value, "/\\\x00")
}
