package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolorbit-auth-api/internal/middleware"
	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.AccessClaims {
	return middleware.CurrentClaims(c)
}

func tenantFromContext(c *gin.Context) *models.TenantInfo {
	return middleware.CurrentTenant(c)
}
