package middleware

import (
	"github.com/gin-gonic/gin"

	"paydocs/internal/core/apperror"
	appctx "paydocs/internal/core/context"
)

// RequireRole lets the request through when the user holds any of roles.
// Admins pass every check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if appctx.GetUser(ctx) == nil {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		for _, role := range roles {
			if appctx.HasRole(ctx, role) {
				c.Next()
				return
			}
		}

		_ = c.Error(
			apperror.NewForbidden("insufficient permissions").
				WithDetail("required_roles", roles),
		)
		c.Abort()
	}
}

// Passthrough is used in place of RequireRole when authentication is disabled.
func Passthrough() gin.HandlerFunc {
	return func(c *gin.Context) { c.Next() }
}

// RequireAdmin lets only administrators through.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := appctx.GetUser(c.Request.Context())
		switch {
		case u == nil:
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
		case !u.IsAdmin:
			_ = c.Error(apperror.NewForbidden("administrator required"))
			c.Abort()
		default:
			c.Next()
		}
	}
}
