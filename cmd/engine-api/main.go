package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/coaching-notes-api/api/swagger"
	"github.com/noah-isme/coaching-notes-api/internal/handler"
	"github.com/noah-isme/coaching-notes-api/internal/middleware"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	"github.com/noah-isme/coaching-notes-api/internal/repository"
	"github.com/noah-isme/coaching-notes-api/internal/service"
	"github.com/noah-isme/coaching-notes-api/migrations"
	"github.com/noah-isme/coaching-notes-api/pkg/cache"
	"github.com/noah-isme/coaching-notes-api/pkg/config"
	"github.com/noah-isme/coaching-notes-api/pkg/database"
	"github.com/noah-isme/coaching-notes-api/pkg/jobs"
	"github.com/noah-isme/coaching-notes-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/coaching-notes-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/coaching-notes-api/pkg/middleware/requestid"
	"github.com/noah-isme/coaching-notes-api/pkg/storage"
)

// @title Coaching Notes Engine API
// @version 1.0.0
// @description Access-control, consent, audit and bulk-mutation engine for coaching notes
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

	if err := migrations.Migrate(db.DB); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The engine degrades to cache misses without redis.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	noteRepo := repository.NewNoteRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	consentRepo := repository.NewConsentRepository(db)
	bulkRepo := repository.NewBulkRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	tagRepo := repository.NewTagRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	savedSearchRepo := repository.NewSavedSearchRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metrics := service.NewMetricsService()
	auditSvc := service.NewAuditService(auditRepo, metrics, logr)
	consentSvc := service.NewConsentService(consentRepo, cfg.Consent.PolicyVersion, logr)
	accessSvc := service.NewAccessService(directoryRepo, consentSvc, metrics, logr)
	tagSvc := service.NewTagService(tagRepo, cacheRepo, cfg.Tags.VocabularyCacheTTL, logr)
	noteSvc := service.NewNoteService(noteRepo, accessSvc, tagSvc, auditSvc, logr)
	searchSvc := service.NewSearchService(noteRepo, accessSvc, cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize, logr)
	savedSearchSvc := service.NewSavedSearchService(savedSearchRepo, searchSvc, logr)
	bulkSvc := service.NewBulkService(bulkRepo, noteSvc, auditSvc, cacheRepo, metrics, service.BulkConfig{
		WorkerConcurrency: cfg.Bulk.WorkerConcurrency,
		MaxTargets:        cfg.Bulk.MaxTargets,
		ReportCacheTTL:    cfg.Bulk.ReportCacheTTL,
	}, logr)
	retentionSvc := service.NewRetentionService(noteRepo, noteSvc, metrics, logr)
	requestSvc := service.NewRequestService(requestRepo, noteSvc, auditSvc, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	exportStore, err := storage.NewLocalStorage(cfg.Export.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Export.SignedURLSecret, cfg.Export.SignedURLTTL)
	exportSvc := service.NewExportService(noteSvc, consentSvc, exportStore, signer, metrics, service.ExportConfig{
		MaxNotes:  cfg.Export.MaxNotes,
		BundleTTL: cfg.Export.BundleTTL,
	}, logr)

	if err := tagSvc.Seed(ctx); err != nil {
		logr.Sugar().Fatalw("failed to seed tag vocabulary", "error", err)
	}

	bulkQueue := jobs.NewQueue("bulk", bulkSvc.HandleJob, jobs.QueueConfig{
		Workers:    2,
		BufferSize: cfg.Bulk.QueueBuffer,
		Logger:     logr,
	})
	bulkSvc.BindQueue(bulkQueue)
	bulkQueue.Start(ctx)
	defer bulkQueue.Stop()

	if cfg.Retention.Enabled {
		go retentionSvc.Run(ctx, cfg.Retention.Interval)
	}

	if cfg.Export.BundleTTL > 0 {
		go exportSvc.RunCleanup(ctx, cfg.Export.CleanupInterval)
	}

	// Handlers.
	noteHandler := handler.NewNoteHandler(noteSvc)
	searchHandler := handler.NewSearchHandler(searchSvc)
	savedSearchHandler := handler.NewSavedSearchHandler(savedSearchSvc)
	consentHandler := handler.NewConsentHandler(consentSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	bulkHandler := handler.NewBulkHandler(bulkSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	tagHandler := handler.NewTagHandler(tagSvc)
	retentionHandler := handler.NewRetentionHandler(retentionSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("accesslevel", func(fl validator.FieldLevel) bool {
			return models.ValidAccessLevel(models.AccessLevel(fl.Field().String()))
		})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	{
		notes := api.Group("/notes")
		{
			notes.POST("", noteHandler.Create)
			notes.GET("/:id", noteHandler.Get)
			notes.PATCH("/:id", noteHandler.Update)
			notes.DELETE("/:id", noteHandler.Delete)
			notes.POST("/:id/share", noteHandler.Share)
			notes.POST("/:id/unshare", noteHandler.Unshare)
			notes.PUT("/:id/privacy", noteHandler.ChangePrivacy)
			notes.POST("/:id/archive", noteHandler.Archive)
			notes.POST("/:id/restore", noteHandler.Restore)
			notes.PUT("/:id/category", noteHandler.AssignCategory)
		}

		api.POST("/search", searchHandler.Search)

		saved := api.Group("/saved-searches")
		{
			saved.POST("", savedSearchHandler.Create)
			saved.GET("", savedSearchHandler.List)
			saved.GET("/:id", savedSearchHandler.Get)
			saved.PUT("/:id", savedSearchHandler.Update)
			saved.DELETE("/:id", savedSearchHandler.Delete)
			saved.POST("/:id/run", savedSearchHandler.Run)
		}

		consents := api.Group("/consents")
		{
			consents.POST("", consentHandler.Record)
			consents.POST("/withdraw", consentHandler.Withdraw)
			consents.GET("/:subjectId/status", consentHandler.Status)
			consents.GET("/:subjectId/history", consentHandler.History)
		}

		api.GET("/audit", auditHandler.Query)

		bulk := api.Group("/bulk")
		{
			bulk.POST("", bulkHandler.Submit)
			bulk.GET("/:id", bulkHandler.Report)
		}

		requests := api.Group("/requests")
		{
			requests.POST("", requestHandler.Submit)
			requests.GET("", requestHandler.List)
			requests.GET("/:id", requestHandler.Get)
			requests.PUT("/:id/status", middleware.RequireRoles(models.RoleAdmin), requestHandler.UpdateStatus)
		}

		exports := api.Group("/exports")
		{
			exports.POST("", exportHandler.Export)
			exports.GET("/download", exportHandler.Download)
		}

		api.GET("/tags", tagHandler.Vocabulary)

		api.POST("/retention/run", middleware.RequireRoles(models.RoleAdmin), retentionHandler.Run)
		api.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
