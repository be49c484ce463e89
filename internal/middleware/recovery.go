package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a panic into the standard 500 envelope. The panic value is
// only echoed back when exposeDetails is set.
func Recovery(log zerolog.Logger, exposeDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("error", r).
					Str("request_id", RequestIDFrom(c)).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")

				body := gin.H{
					"success": false,
					"error":   "Internal server error",
					"code":    "internal",
				}
				if exposeDetails {
					body["details"] = fmt.Sprint(r)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, body)
			}
		}()
		c.Next()
	}
}
