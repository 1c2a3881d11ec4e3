package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/lgulliver/craftcms/cmd/craftcms/types"
	"github.com/lgulliver/craftcms/internal/common"
	"github.com/rs/zerolog/log"
)

// respondError writes err with the status its kind maps to. Server-side
// failures are logged and their details withheld from the client.
func respondError(c *gin.Context, message string, err error) {
	status := common.HTTPStatus(err)
	resp := types.NewErrorResponse(message, err)
	if status >= 500 {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg(message)
	} else {
		resp.Details = err.Error()
	}
	c.JSON(status, resp)
}
