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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/lms-stats-api/api/swagger"
	"github.com/noah-isme/lms-stats-api/internal/dto"
	"github.com/noah-isme/lms-stats-api/internal/handler"
	"github.com/noah-isme/lms-stats-api/internal/middleware"
	"github.com/noah-isme/lms-stats-api/internal/repository"
	"github.com/noah-isme/lms-stats-api/internal/service"
	"github.com/noah-isme/lms-stats-api/pkg/cache"
	"github.com/noah-isme/lms-stats-api/pkg/config"
	"github.com/noah-isme/lms-stats-api/pkg/database"
	"github.com/noah-isme/lms-stats-api/pkg/jobs"
	"github.com/noah-isme/lms-stats-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-stats-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-stats-api/pkg/middleware/requestid"
)

// @title LMS Stats API
// @version 0.1.0
// @description Score rollups and page-view activity counters for the learning platform
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
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	assignments := repository.NewAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	rollups := repository.NewRollupRepository(db)
	counters := repository.NewCounterRepository(db)
	buffer := repository.NewBufferRepository(redisClient, cfg.Activity.Shard, logr)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Rollups.CacheTTL, logr, cfg.Rollups.CacheEnabled)
	rollupSvc := service.NewRollupService(assignments, submissions, rollups, cacheSvc, metricsSvc, logr)
	activitySvc := service.NewActivityService(counters, buffer, cfg.Activity.BufferedCounters, validator.New(), metricsSvc, logr)
	drainSvc := service.NewDrainService(buffer, counters, cfg.Activity.DrainLockTTL, metricsSvc, logr)

	recomputeQueue := jobs.NewQueue("rollup-recompute", func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(dto.RecomputePayload)
		if !ok {
			return fmt.Errorf("unexpected payload for job %s", job.ID)
		}
		if payload.CourseSectionID != "" {
			_, err := rollupSvc.RecomputeSection(ctx, payload.AssignmentID, payload.CourseSectionID)
			return err
		}
		_, err := rollupSvc.RecomputeAssignment(ctx, payload.AssignmentID)
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.Rollups.RecomputeWorkers,
		MaxRetries: cfg.Rollups.RecomputeRetries,
		Logger:     logr,
	})
	recomputeQueue.Start(ctx)
	defer recomputeQueue.Stop()

	if cfg.Activity.BufferedCounters {
		go drainSvc.Run(ctx, cfg.Activity.DrainInterval)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	rollupHandler := handler.NewRollupHandler(rollupSvc, recomputeQueue)
	activityHandler := handler.NewActivityHandler(activitySvc)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/assignments/:assignment_id/rollup", rollupHandler.Assignment)
		api.GET("/assignments/:assignment_id/sections/:section_id/rollup", rollupHandler.Section)
		api.POST("/assignments/:assignment_id/rollup/recompute", rollupHandler.Recompute)

		api.GET("/courses/:course_id/activity", activityHandler.Range)
		api.POST("/courses/:course_id/activity", activityHandler.Increment)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env,
			"buffered_counters", cfg.Activity.BufferedCounters)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown", "error", err)
	}
}
