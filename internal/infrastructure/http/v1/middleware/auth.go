package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"spareflow/internal/core/apperror"
	appctx "spareflow/internal/core/context"
)

// TokenValidator validates a bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.Principal, error)
}

// Auth requires a valid bearer token and puts the principal in the request
// context. The handlers compare it with the actor named in the body.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		principal, err := validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Request = c.Request.WithContext(appctx.WithPrincipal(c.Request.Context(), principal))
		c.Set("user_id", principal.Subject)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
