package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hearthapp/server/internal/module/auth"
	apperrors "github.com/hearthapp/server/internal/shared/errors"
)

// Context keys set by Auth.
const (
	CtxUserID   = "user_id"
	CtxFamilyID = "family_id"
	CtxRole     = "role"
)

// Auth returns a middleware that validates Bearer tokens and stores the
// actor's identity and role on the request context.
func Auth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "invalid authorization header")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxFamilyID, claims.FamilyID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	appErr := apperrors.Unauthorized(message)
	c.AbortWithStatusJSON(appErr.StatusCode, appErr.ToResponse())
}
