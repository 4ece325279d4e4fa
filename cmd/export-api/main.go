package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusworks/sis-export-api/api/swagger"
	"github.com/campusworks/sis-export-api/internal/handler"
	"github.com/campusworks/sis-export-api/internal/middleware"
	"github.com/campusworks/sis-export-api/internal/models"
	"github.com/campusworks/sis-export-api/internal/repository"
	"github.com/campusworks/sis-export-api/internal/service"
	"github.com/campusworks/sis-export-api/pkg/cache"
	"github.com/campusworks/sis-export-api/pkg/config"
	"github.com/campusworks/sis-export-api/pkg/database"
	"github.com/campusworks/sis-export-api/pkg/jobs"
	"github.com/campusworks/sis-export-api/pkg/logger"
	corsmiddleware "github.com/campusworks/sis-export-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusworks/sis-export-api/pkg/middleware/requestid"
	"github.com/campusworks/sis-export-api/pkg/render"
	"github.com/campusworks/sis-export-api/pkg/storage"
)

// @title SIS Export API
// @version 1.0.0
// @description Multi-tenant export pipeline for transcripts, report cards, and compliance documents
// @BasePath /api/v1
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
	defer db.Close() //nolint:errcheck

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	blobs, err := storage.NewBlobStore(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	jobRepo := repository.NewExportJobRepository(db)
	dataRepo := repository.NewExportDataRepository(db)
	templateRepo := repository.NewExportTemplateRepository(db)
	externalIDRepo := repository.NewExternalIDRepository(db)
	profileRepo := repository.NewCachedProfileRepository(
		repository.NewProfileRepository(db), cacheRepo, cfg.Exports.ProfileCacheTTL, logr)

	metrics := service.NewMetricsService()
	authService := service.NewAuthService(cfg.JWT, logr)
	datasetService := service.NewExportDatasetService(dataRepo, externalIDRepo, logr)
	processor := service.NewExportProcessor(jobRepo, profileRepo, datasetService, blobs,
		render.NewPDFRenderer(), render.NewCSVRenderer(), render.NewXLSXRenderer(), metrics, logr)

	dispatcher := jobs.NewDispatcher("exports", func(ctx context.Context, job jobs.Job) error {
		_, err := processor.Process(ctx, job.ID, job.RequesterID)
		return err
	}, jobs.DispatcherConfig{Workers: cfg.Exports.DispatcherWorkers, Logger: logr})

	jobService := service.NewExportJobService(jobRepo, dispatcher, signer, blobs, cfg.Exports, cfg.APIPrefix, logr)
	templateService := service.NewTemplateService(templateRepo, logr)

	exportHandler := handler.NewExportHandler(jobService, processor, logr)
	templateHandler := handler.NewTemplateHandler(templateService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// the signed token is the credential on the download route
	api.GET("/exports/download/:token", exportHandler.Download)

	authed := api.Group("", middleware.JWT(authService))
	exports := authed.Group("/exports",
		middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleRegistrar))
	exports.POST("", exportHandler.Create)
	exports.GET("", exportHandler.List)
	exports.POST("/process", exportHandler.Process)
	exports.GET("/:id", exportHandler.Get)
	exports.POST("/:id/archive", exportHandler.Archive)
	exports.POST("/:id/regenerate", exportHandler.Regenerate)
	exports.POST("/:id/trigger", exportHandler.Trigger)
	exports.GET("/:id/download-url", exportHandler.DownloadURL)

	templates := authed.Group("/export-templates",
		middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal))
	templates.POST("", templateHandler.Create)
	templates.GET("", templateHandler.List)
	templates.GET("/:id", templateHandler.Get)
	templates.PUT("/:id", templateHandler.UpdateConfig)
	templates.DELETE("/:id", templateHandler.Archive)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(ctx)
	defer dispatcher.Stop()
	jobService.StartPendingSweep(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		logr.Sugar().Infow("shutting down server")
		_ = srv.Shutdown(context.Background())
	}()

	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
