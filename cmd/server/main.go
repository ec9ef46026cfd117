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

	"seedmart/internal/config"
	"seedmart/internal/handlers"
	"seedmart/internal/middleware"
	"seedmart/internal/referral"
	"seedmart/internal/repositories/mongodb"
	"seedmart/internal/services"
	"seedmart/pkg/cache"
	"seedmart/pkg/database"
	"seedmart/pkg/logger"
	"seedmart/pkg/notify"
	"seedmart/routes"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Connect to MongoDB
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db.Database)
	if err := migrator.Up(); err != nil {
		appLogger.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Repositories
	memberRepo := mongodb.NewMemberRepository(db.Database, redisCache)
	customerRepo := mongodb.NewCustomerRepository(db.Database, redisCache)
	eventRepo := mongodb.NewEventRepository(db.Database, redisCache)
	auditRepo := mongodb.NewAuditLogRepository(db.Database)
	payoutRepo := mongodb.NewPayoutRepository(db.Database)
	settingsRepo := mongodb.NewSettingsRepository(db.Database)

	// Program settings: seed defaults on first boot, refuse to start on an
	// invalid configuration.
	settingsService := services.NewSettingsService(settingsRepo, redisCache, appLogger)
	if err := settingsService.Load(context.Background()); err != nil {
		appLogger.Fatalf("Failed to load referral settings: %v", err)
	}

	// Notification providers
	var providers []notify.Provider
	if cfg.Notification.SNSEnabled {
		snsProvider, err := notify.NewSNSProvider(cfg.Notification.AWSRegion, cfg.Notification.SNSTopicARN)
		if err != nil {
			appLogger.Fatalf("Failed to initialize SNS provider: %v", err)
		}
		providers = append(providers, snsProvider)
	}
	if cfg.Notification.TwilioEnabled {
		providers = append(providers, notify.NewTwilioProvider(
			cfg.Notification.TwilioAccountSID,
			cfg.Notification.TwilioAuthToken,
			cfg.Notification.TwilioFromNumber,
		))
	}
	notifier := services.NewNotificationService(providers, appLogger)

	// Referral engine
	engine := referral.NewEngine(
		memberRepo,
		customerRepo,
		eventRepo,
		auditRepo,
		payoutRepo,
		settingsService,
		notifier,
		appLogger,
	)

	// Handlers
	orderHandler := handlers.NewOrderHandler(engine)
	memberHandler := handlers.NewMemberHandler(engine, memberRepo, eventRepo, payoutRepo, auditRepo)
	adminHandler := handlers.NewAdminHandler(engine, settingsService, memberRepo, eventRepo, auditRepo)

	// Router
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())

	// API routes
	v1 := router.Group("/api/v1")
	{
		routes.SetupReferralRoutes(v1, orderHandler, memberHandler, adminHandler,
			cfg.App.AdminAPIKey, cfg.App.WebhookAPIKey)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := db.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": cfg.App.Version,
		})
	})

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on port %d", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
}
