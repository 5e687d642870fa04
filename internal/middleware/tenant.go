package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/internal/service"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/response"
)

// ContextTenantKey is the gin context key storing the resolved tenant.
const ContextTenantKey = "currentTenant"

// Tenant resolves the request host to a tenant before any handler runs.
// Requests for hosts no tenant claims are rejected outright.
func Tenant(tenants *service.TenantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := tenants.ResolveTenant(c.Request.Context(), c.Request.Host)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextTenantKey, info)
		c.Next()
	}
}

// CurrentTenant returns the tenant stored by Tenant, or nil.
func CurrentTenant(c *gin.Context) *models.TenantInfo {
	value, exists := c.Get(ContextTenantKey)
	if !exists {
		return nil
	}
	info, ok := value.(*models.TenantInfo)
	if !ok {
		return nil
	}
	return info
}
