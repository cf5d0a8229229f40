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

	"ambulink/internal/config"
	"ambulink/internal/handlers"
	"ambulink/internal/middleware"
	mongorepo "ambulink/internal/repositories/mongodb"
	"ambulink/internal/services"
	"ambulink/pkg/cache"
	"ambulink/pkg/database"
	"ambulink/pkg/logger"
	"ambulink/pkg/sms"
	ws "ambulink/pkg/websocket"
	"ambulink/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.App.LogLevel),
		Format:  cfg.App.LogFormat,
		Output:  "stdout",
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	mongodb, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongodb.Close()

	migrator := database.NewMigrator(mongodb.Database, appLogger)
	if err := migrator.Up(); err != nil {
		appLogger.WithError(err).Fatal("Failed to run migrations")
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.Database,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	requestRepo := mongorepo.NewRequestRepository(mongodb.Database, redisCache)
	driverRepo := mongorepo.NewDriverRepository(mongodb.Database)
	ambulanceRepo := mongorepo.NewAmbulanceRepository(mongodb.Database)

	registry := services.NewRegistryService(driverRepo, ambulanceRepo, appLogger)

	hub := ws.NewHub(appLogger)
	notifier := services.NewNotifierService(hub, appLogger)

	smsProvider, err := newSMSProvider(cfg.SMS)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize SMS provider")
	}
	if smsProvider == nil {
		appLogger.Info("SMS provider disabled, acceptance fallback is off")
	}

	dispatchService := services.NewDispatchService(
		requestRepo,
		driverRepo,
		ambulanceRepo,
		registry,
		notifier,
		smsProvider,
		appLogger,
	)

	hub.SetConnectionListener(registry)
	hub.SetEventHandler(dispatchService.(ws.EventHandler))
	go hub.Run()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())

	emergencyHandler := handlers.NewEmergencyHandler(dispatchService)

	v1 := router.Group("/api/v1")
	{
		routes.SetupEmergencyRoutes(v1, emergencyHandler, cfg.Security.JWTSecret)
	}

	wsHandler := ws.NewHandler(hub, cfg.Security.CORSAllowedOrigins)
	router.GET("/ws", middleware.AuthRequired(cfg.Security.JWTSecret), wsHandler.HandleWebSocket)

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{"mongodb": "up", "redis": "up"}

		if err := mongodb.Ping(); err != nil {
			status = http.StatusServiceUnavailable
			checks["mongodb"] = "down"
		}
		if err := redisCache.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			checks["redis"] = "down"
		}

		c.JSON(status, gin.H{
			"status":  checks,
			"version": cfg.App.Version,
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		appLogger.Infof("Starting server on port %d", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server shutdown failed")
	}
	hub.Shutdown()
}

func newSMSProvider(cfg *config.SMSConfig) (sms.SMSProvider, error) {
	switch cfg.Provider {
	case "twilio":
		return sms.NewTwilioProvider(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber), nil
	case "sns":
		provider, err := sms.NewAWSSNSProvider(cfg.AWSSNS.Region)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, nil
	}
}
