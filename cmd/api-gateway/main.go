package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-editor/api/swagger"
	"github.com/noah-isme/timetable-editor/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-editor/internal/middleware"
	"github.com/noah-isme/timetable-editor/internal/models"
	"github.com/noah-isme/timetable-editor/internal/repository"
	"github.com/noah-isme/timetable-editor/internal/service"
	"github.com/noah-isme/timetable-editor/pkg/cache"
	"github.com/noah-isme/timetable-editor/pkg/config"
	"github.com/noah-isme/timetable-editor/pkg/database"
	"github.com/noah-isme/timetable-editor/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-editor/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-editor/pkg/middleware/requestid"
)

const (
	shutdownTimeout = 15 * time.Second
	janitorInterval = time.Minute
)

// @title Timetable Editor API
// @version 1.0.0
// @description Interactive editing sessions over committed school timetables
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("postgres unavailable", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Catalog.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalogue cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	planRepo := repository.NewPlanRepository(db)
	slotRepo := repository.NewPlanSlotRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, service.CacheOptions{
		Enabled:    cfg.Catalog.CacheEnabled && redisClient != nil,
		DefaultTTL: cfg.Catalog.CacheTTL,
	}, logr)
	catalogSvc := service.NewCatalogService(catalogRepo, cacheSvc, cfg.Catalog.CacheTTL, logr)
	replacer := service.NewPlanSlotReplacer(planRepo, slotRepo, db, validate, metrics, logr)
	editorSvc := service.NewPlanEditorService(planRepo, slotRepo, catalogSvc, replacer, validate, metrics, logr, service.PlanEditorConfig{
		SessionTTL:  cfg.Editor.SessionTTL,
		MaxSessions: cfg.Editor.MaxSessions,
		SaveTimeout: cfg.Editor.SaveTimeout,
	})
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
		"postgres": db,
		"redis":    handler.PingerFunc(cacheRepo.Ping),
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Editor.Enabled {
		api := r.Group(cfg.APIPrefix)
		api.Use(
			internalmiddleware.JWT(authSvc),
			internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
		)
		handler.NewPlanEditorHandler(editorSvc).Register(api)
		go editorSvc.RunJanitor(ctx, janitorInterval)
	} else {
		logr.Info("timetable editor disabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
