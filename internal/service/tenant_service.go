package service

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/config"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

type tenantRepository interface {
	FindByHost(ctx context.Context, host string) (*models.TenantInfo, error)
}

type tenantCacheEntry struct {
	info      models.TenantInfo
	expiresAt time.Time
}

// TenantService maps request hosts to tenant data stores. Resolutions are
// cached in a bounded in-process map with a TTL so a deactivated mapping
// stops being served within one cache period. The cache is read-mostly; the
// RWMutex keeps reads cheap and makes racing inserts of the same host an
// idempotent overwrite.
type TenantService struct {
	repo          tenantRepository
	metrics       *MetricsService
	logger        *zap.Logger
	defaultTenant models.TenantInfo
	ttl           time.Duration
	maxEntries    int

	mu    sync.RWMutex
	cache map[string]tenantCacheEntry
}

// NewTenantService constructs a TenantService.
func NewTenantService(repo tenantRepository, metrics *MetricsService, logger *zap.Logger, cfg config.TenantConfig) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	maxEntries := cfg.CacheMaxEntries
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &TenantService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		defaultTenant: models.TenantInfo{
			TenantID:    cfg.DefaultTenantID,
			DatabaseURL: cfg.DefaultDatabaseURL,
		},
		ttl:        ttl,
		maxEntries: maxEntries,
		cache:      make(map[string]tenantCacheEntry),
	}
}

// ResolveTenant maps a request host to its tenant. Loopback hosts resolve to
// the fixed default tenant regardless of store contents.
func (s *TenantService) ResolveTenant(ctx context.Context, host string) (*models.TenantInfo, error) {
	host = normalizeHost(host)
	if host == "" {
		return nil, appErrors.Clone(appErrors.ErrTenantNotFound, "empty host")
	}

	if isLoopback(host) {
		info := s.defaultTenant
		return &info, nil
	}

	if info, ok := s.cacheGet(host); ok {
		s.metrics.RecordTenantCacheLookup(true)
		return &info, nil
	}
	s.metrics.RecordTenantCacheLookup(false)

	info, err := s.repo.FindByHost(ctx, host)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrTenantNotFound, "no tenant mapped to host")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve tenant")
	}

	s.cachePut(host, *info)
	return info, nil
}

func (s *TenantService) cacheGet(host string) (models.TenantInfo, bool) {
	s.mu.RLock()
	entry, ok := s.cache[host]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return models.TenantInfo{}, false
	}
	return entry.info, true
}

func (s *TenantService) cachePut(host string, info models.TenantInfo) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cache[host]; !exists && len(s.cache) >= s.maxEntries {
		s.evictExpiredLocked(now)
		if len(s.cache) >= s.maxEntries {
			// Cache full of live entries; serve this host from the store
			// until something expires.
			return
		}
	}

	s.cache[host] = tenantCacheEntry{info: info, expiresAt: now.Add(s.ttl)}
}

func (s *TenantService) evictExpiredLocked(now time.Time) {
	for host, entry := range s.cache {
		if now.After(entry.expiresAt) {
			delete(s.cache, host)
		}
	}
}

// normalizeHost lowercases and strips any port suffix.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
