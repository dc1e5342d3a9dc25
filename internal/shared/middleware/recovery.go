package middleware

import (
	"log"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	apperrors "github.com/hearthapp/server/internal/shared/errors"
)

// Recovery returns a middleware that recovers from panics.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered: %v\n%s", err, debug.Stack())
				appErr := apperrors.Internal("internal server error", nil)
				c.AbortWithStatusJSON(appErr.StatusCode, appErr.ToResponse())
			}
		}()
		c.Next()
	}
}
