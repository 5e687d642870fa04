package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/response"
)

// RequirePermission gates a route on a permission code embedded in the access
// token. Claims are authoritative for the token's lifetime; no store lookup
// happens here.
func RequirePermission(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		for _, perm := range claims.Perms {
			if perm == code {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRole gates a route on any of the listed role codes.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		for _, role := range claims.Roles {
			if _, ok := allowed[role]; ok {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
