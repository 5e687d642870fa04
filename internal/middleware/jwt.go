package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/internal/service"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/response"
)

// ContextUserKey is the gin context key storing validated access claims.
const ContextUserKey = "currentUser"

// AccessCookieName is the cookie carrying the access token for browsers.
const AccessCookieName = "access"

// JWT protects routes by requiring a valid access token, read from the
// access cookie or, for non-browser clients, a Bearer header. A valid,
// unexpired token authorizes the request on its claims alone.
func JWT(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// OptionalJWT attaches claims when present but does not block.
func OptionalJWT(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessCookieName); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// CurrentClaims returns the validated claims stored by JWT, or nil.
func CurrentClaims(c *gin.Context) *models.AccessClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.AccessClaims)
	if !ok {
		return nil
	}
	return claims
}
