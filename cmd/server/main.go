package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/scheduler"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/metrics"
	"github.com/ikkim/storefront-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := cfg.Log.Level
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Log.Format == "console",
	})

	logger.Info("Starting storefront analytics server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Redis is optional; without it jobs only serialize inside this process's transactions
	var locker service.JobLocker
	if cfg.Redis.Host != "" {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer redis.Close()
		locker = redis.NewJobLocker(cfg.Analytics.LockTTL)
	} else {
		logger.Warn("REDIS_HOST not set, analytics job locks disabled", nil)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	jobMetrics := metrics.NewJobMetrics(registry)

	// Live event hub
	hub := websocket.NewHub()
	go hub.Run()

	// Report archive
	var reportStore service.ReportStore
	if cfg.S3.Bucket != "" {
		reportStore = storage.NewS3Storage(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.ReportPrefix,
		)
	} else {
		logger.Warn("AWS_S3_BUCKET not set, daily report archive disabled", nil)
	}

	var calendar service.DateCalendar
	if cfg.Analytics.JalaliCalendar {
		calendar = service.NewJalaliCalendar()
	}

	database := db.GetDB()

	// Initialize repositories
	userRepo := repository.NewUserRepository(database)
	catalogRepo := repository.NewCatalogRepository(database)
	orderRepo := repository.NewOrderRepository(database)
	purchaseRepo := repository.NewPurchaseRepository(database)
	inventoryRepo := repository.NewInventoryRepository(database)
	dimensionRepo := repository.NewDimensionRepository(database)
	factRepo := repository.NewFactRepository(database)
	factAnalyticsRepo := repository.NewFactAnalyticsRepository(database)
	analyticsRepo := repository.NewAnalyticsRepository(database)

	// Initialize services
	dimensionService := service.NewDimensionService(dimensionRepo, calendar, cfg.Analytics.Location())
	inventoryService := service.NewInventoryService(inventoryRepo, database)
	factService := service.NewFactService(factRepo, factAnalyticsRepo, orderRepo, dimensionService)
	syncService := service.NewSyncService(orderRepo, factRepo, dimensionService, factService, database, locker, hub, jobMetrics)
	rollupService := service.NewRollupService(factRepo, factAnalyticsRepo, database, locker, hub, jobMetrics)
	exportService := service.NewExportService(rollupService, reportStore, hub, jobMetrics)
	analyticsService := service.NewAnalyticsService(analyticsRepo)
	orderService := service.NewOrderService(orderRepo, catalogRepo, userRepo, inventoryService, factService, database, hub)
	purchaseService := service.NewPurchaseService(purchaseRepo, catalogRepo, inventoryRepo, database)

	// Initialize controllers
	analyticsController := controller.NewAnalyticsController(syncService, rollupService, analyticsService, exportService)
	orderController := controller.NewOrderController(orderService)
	purchaseController := controller.NewPurchaseController(purchaseService, inventoryService)
	streamController := controller.NewStreamController(hub, cfg.CORS.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		analyticsController,
		orderController,
		purchaseController,
		streamController,
		authMiddleware,
		registry,
		cfg,
	)
	engine := r.Setup()

	analyticsScheduler := scheduler.NewAnalyticsScheduler(cfg.Analytics, syncService, rollupService, exportService)
	if err := analyticsScheduler.Start(); err != nil {
		logger.Fatal("Failed to start analytics scheduler", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	analyticsScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}
