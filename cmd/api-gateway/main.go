package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roomly/roombook-api/internal/handler"
	internalmiddleware "github.com/roomly/roombook-api/internal/middleware"
	"github.com/roomly/roombook-api/internal/repository"
	"github.com/roomly/roombook-api/internal/service"
	"github.com/roomly/roombook-api/pkg/cache"
	"github.com/roomly/roombook-api/pkg/config"
	"github.com/roomly/roombook-api/pkg/database"
	"github.com/roomly/roombook-api/pkg/jobs"
	"github.com/roomly/roombook-api/pkg/logger"
	corsmiddleware "github.com/roomly/roombook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/roomly/roombook-api/pkg/middleware/requestid"
)

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	roomRepo := repository.NewRoomRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	schedulerSvc := service.NewSchedulerService(roomRepo, bookingRepo, cacheRepo, validate, logr, metricsSvc, cfg.Scheduler)
	bookingSvc := service.NewBookingService(bookingRepo, cacheRepo, validate, logr, metricsSvc, cfg.Scheduler)

	holdSweeper := jobs.NewSweeper("tentative-holds", bookingSvc.ReleaseExpiredHolds, jobs.SweeperConfig{
		Interval: cfg.Scheduler.SweepInterval,
		Logger:   logr,
	})
	holdSweeper.Start(context.Background())
	defer holdSweeper.Stop()

	schedulingHandler := handler.NewSchedulingHandler(schedulerSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/meetings/find-optimal", schedulingHandler.FindOptimal)
		api.POST("/bookings", bookingHandler.Commit)
		api.PATCH("/bookings/:id/status", bookingHandler.UpdateStatus)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
