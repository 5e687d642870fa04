package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/internal/service"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/config"
)

type stubTenantRepo struct {
	byHost map[string]*models.TenantInfo
}

func (s *stubTenantRepo) FindByHost(ctx context.Context, host string) (*models.TenantInfo, error) {
	if info, ok := s.byHost[host]; ok {
		copied := *info
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func tenantTestRouter(repo *stubTenantRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tenants := service.NewTenantService(repo, nil, zap.NewNop(), config.TenantConfig{
		DefaultTenantID: "default",
		CacheTTL:        time.Minute,
		CacheMaxEntries: 8,
	})

	r := gin.New()
	r.GET("/auth/me", Tenant(tenants), func(c *gin.Context) {
		info := CurrentTenant(c)
		c.JSON(http.StatusOK, gin.H{"tenant_id": info.TenantID})
	})
	return r
}

func TestTenantMiddlewareResolvesHost(t *testing.T) {
	r := tenantTestRouter(&stubTenantRepo{byHost: map[string]*models.TenantInfo{
		"school-a.example.com": {TenantID: "tenant-a"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Host = "school-a.example.com"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tenant-a")
}

func TestTenantMiddlewareLoopbackDefault(t *testing.T) {
	r := tenantTestRouter(&stubTenantRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Host = "localhost:8787"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "default")
}

func TestTenantMiddlewareUnknownHost(t *testing.T) {
	r := tenantTestRouter(&stubTenantRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Host = "unknown.example.com"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
