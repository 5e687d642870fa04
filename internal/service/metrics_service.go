package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the auth domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	loginsTotal     *prometheus.CounterVec
	rotationsTotal  prometheus.Counter
	reuseTotal      prometheus.Counter
	revokedTotal    prometheus.Counter
	cleanupDeleted  prometheus.Counter
	tenantCacheHits *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	loginsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by outcome",
	}, []string{"result"})

	rotationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_rotations_total",
		Help: "Successful refresh token rotations",
	})

	reuseTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_reuse_detected_total",
		Help: "Refresh token reuse detections (family revocations)",
	})

	revokedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_revoked_total",
		Help: "Explicit session revocations (logout, password change)",
	})

	cleanupDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_cleaned_total",
		Help: "Sessions removed by the cleanup job",
	})

	tenantCacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_cache_lookups_total",
		Help: "Tenant resolution cache lookups by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, loginsTotal, rotationsTotal, reuseTotal, revokedTotal, cleanupDeleted, tenantCacheHits, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		loginsTotal:     loginsTotal,
		rotationsTotal:  rotationsTotal,
		reuseTotal:      reuseTotal,
		revokedTotal:    revokedTotal,
		cleanupDeleted:  cleanupDeleted,
		tenantCacheHits: tenantCacheHits,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordLogin counts a login attempt by outcome.
func (m *MetricsService) RecordLogin(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.loginsTotal.WithLabelValues(result).Inc()
}

// RecordRotation counts a successful refresh rotation.
func (m *MetricsService) RecordRotation() {
	if m == nil {
		return
	}
	m.rotationsTotal.Inc()
}

// RecordReuseDetected counts a reuse detection and its family revocation.
func (m *MetricsService) RecordReuseDetected() {
	if m == nil {
		return
	}
	m.reuseTotal.Inc()
}

// RecordRevocation counts an explicit session revocation.
func (m *MetricsService) RecordRevocation() {
	if m == nil {
		return
	}
	m.revokedTotal.Inc()
}

// RecordCleanup counts sessions removed by the hygiene job.
func (m *MetricsService) RecordCleanup(deleted int64) {
	if m == nil || deleted <= 0 {
		return
	}
	m.cleanupDeleted.Add(float64(deleted))
}

// RecordTenantCacheLookup counts a tenant cache hit or miss.
func (m *MetricsService) RecordTenantCacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.tenantCacheHits.WithLabelValues(outcome).Inc()
}
