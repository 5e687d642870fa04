package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/config"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

type mockTenantRepo struct {
	byHost map[string]*models.TenantInfo
	calls  int
}

func (m *mockTenantRepo) FindByHost(ctx context.Context, host string) (*models.TenantInfo, error) {
	m.calls++
	if info, ok := m.byHost[host]; ok {
		copied := *info
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func testTenantConfig() config.TenantConfig {
	return config.TenantConfig{
		DefaultTenantID:    "default",
		DefaultDatabaseURL: "postgres://localhost:5432/schoolorbit",
		CacheTTL:           time.Minute,
		CacheMaxEntries:    4,
	}
}

func TestTenantServiceResolvesAndCaches(t *testing.T) {
	repo := &mockTenantRepo{byHost: map[string]*models.TenantInfo{
		"school-a.example.com": {TenantID: "tenant-a", DatabaseURL: "postgres://db-a/school"},
	}}
	svc := NewTenantService(repo, nil, zap.NewNop(), testTenantConfig())

	for i := 0; i < 3; i++ {
		info, err := svc.ResolveTenant(context.Background(), "school-a.example.com")
		require.NoError(t, err)
		assert.Equal(t, "tenant-a", info.TenantID)
	}
	assert.Equal(t, 1, repo.calls)
}

func TestTenantServiceStripsPortAndCase(t *testing.T) {
	repo := &mockTenantRepo{byHost: map[string]*models.TenantInfo{
		"school-a.example.com": {TenantID: "tenant-a"},
	}}
	svc := NewTenantService(repo, nil, zap.NewNop(), testTenantConfig())

	info, err := svc.ResolveTenant(context.Background(), "School-A.Example.COM:8787")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", info.TenantID)
}

func TestTenantServiceLoopbackUsesDefault(t *testing.T) {
	repo := &mockTenantRepo{}
	svc := NewTenantService(repo, nil, zap.NewNop(), testTenantConfig())

	for _, host := range []string{"localhost", "localhost:8787", "127.0.0.1", "127.0.0.1:3000", "[::1]:8080"} {
		info, err := svc.ResolveTenant(context.Background(), host)
		require.NoError(t, err, host)
		assert.Equal(t, "default", info.TenantID, host)
	}
	assert.Equal(t, 0, repo.calls)
}

func TestTenantServiceUnknownHost(t *testing.T) {
	svc := NewTenantService(&mockTenantRepo{}, nil, zap.NewNop(), testTenantConfig())

	_, err := svc.ResolveTenant(context.Background(), "unknown.example.com")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTenantNotFound.Code, appErrors.FromError(err).Code)
}

func TestTenantServiceCacheExpiry(t *testing.T) {
	repo := &mockTenantRepo{byHost: map[string]*models.TenantInfo{
		"school-a.example.com": {TenantID: "tenant-a"},
	}}
	cfg := testTenantConfig()
	cfg.CacheTTL = 10 * time.Millisecond
	svc := NewTenantService(repo, nil, zap.NewNop(), cfg)

	_, err := svc.ResolveTenant(context.Background(), "school-a.example.com")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = svc.ResolveTenant(context.Background(), "school-a.example.com")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.calls)
}

// A full cache of live entries serves overflow hosts from the store instead of
// evicting entries that have not expired.
func TestTenantServiceBoundedCache(t *testing.T) {
	hosts := map[string]*models.TenantInfo{}
	for _, h := range []string{"a", "b", "c", "d", "e"} {
		hosts[h+".example.com"] = &models.TenantInfo{TenantID: "tenant-" + h}
	}
	repo := &mockTenantRepo{byHost: hosts}
	cfg := testTenantConfig()
	cfg.CacheMaxEntries = 4
	svc := NewTenantService(repo, nil, zap.NewNop(), cfg)

	for _, host := range []string{"a.example.com", "b.example.com", "c.example.com", "d.example.com", "e.example.com"} {
		_, err := svc.ResolveTenant(context.Background(), host)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, repo.calls)

	// The fifth host never entered the cache, so it hits the store again.
	_, err := svc.ResolveTenant(context.Background(), "e.example.com")
	require.NoError(t, err)
	assert.Equal(t, 6, repo.calls)

	// The first four are still served from cache.
	_, err = svc.ResolveTenant(context.Background(), "a.example.com")
	require.NoError(t, err)
	assert.Equal(t, 6, repo.calls)
}
