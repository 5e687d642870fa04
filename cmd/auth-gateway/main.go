package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/schoolorbit-auth-api/api/swagger"
	"github.com/noah-isme/schoolorbit-auth-api/internal/handler"
	"github.com/noah-isme/schoolorbit-auth-api/internal/middleware"
	"github.com/noah-isme/schoolorbit-auth-api/internal/repository"
	"github.com/noah-isme/schoolorbit-auth-api/internal/service"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/cache"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/config"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/database"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/jobs"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/schoolorbit-auth-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/schoolorbit-auth-api/pkg/middleware/requestid"
)

// @title SchoolOrbit Auth API
// @version 0.1.0
// @description Tenant-aware authentication and session rotation service
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Limiter.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			// The limiter repository treats a nil client as disabled.
			logr.Sugar().Warnw("redis unavailable, login rate limiting disabled", "error", err)
		} else {
			defer redisClient.Close()
		}
	}

	actorRepo := repository.NewActorRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	rbacRepo := repository.NewRBACRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	limiterRepo := repository.NewLimiterRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT)
	credentialSvc := service.NewCredentialService(actorRepo, cfg.Crypto.PIILookupSalt, logr)
	permissionSvc := service.NewPermissionService(rbacRepo, actorRepo)
	sessionSvc := service.NewSessionService(sessionRepo, auditRepo, metricsSvc, logr, cfg.Session)
	tenantSvc := service.NewTenantService(tenantRepo, metricsSvc, logr, cfg.Tenant)
	authSvc := service.NewAuthService(
		actorRepo,
		credentialSvc,
		permissionSvc,
		tokenSvc,
		sessionSvc,
		limiterRepo,
		auditRepo,
		metricsSvc,
		logr,
		cfg.Crypto,
		cfg.Limiter,
	)

	cookies := handler.NewCookieWriter(cfg.Env == config.EnvProduction, cfg.Session.RefreshTTL)
	authHandler := handler.NewAuthHandler(authSvc, cookies)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := r.Group("/auth", middleware.Tenant(tenantSvc))
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(tokenSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(tokenSvc), authHandler.Me)
		auth.POST("/password", middleware.JWT(tokenSvc), authHandler.ChangePassword)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Session.CleanupEnabled {
		cleanupQueue := jobs.NewQueue("session-cleanup", func(ctx context.Context, job jobs.Job) error {
			deleted, err := sessionSvc.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if deleted > 0 {
				logr.Sugar().Infow("expired sessions removed", "count", deleted)
			}
			return nil
		}, jobs.QueueConfig{Workers: 1, Logger: logr})
		cleanupQueue.Start(rootCtx)
		defer cleanupQueue.Stop()

		go func() {
			ticker := time.NewTicker(cfg.Session.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-rootCtx.Done():
					return
				case <-ticker.C:
					if err := cleanupQueue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "cleanup"}); err != nil {
						logr.Sugar().Warnw("failed to enqueue session cleanup", "error", err)
					}
				}
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
