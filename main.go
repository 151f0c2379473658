package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Jayabed45/unihub-sub000/config"
	"github.com/Jayabed45/unihub-sub000/db"
	"github.com/Jayabed45/unihub-sub000/handlers"
	"github.com/Jayabed45/unihub-sub000/middleware"
	"github.com/Jayabed45/unihub-sub000/services"
	"github.com/Jayabed45/unihub-sub000/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Connect to database
	database, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	// Connect the relay backend when enabled
	var redisClient *redis.Client
	if cfg.RelayEnabled {
		redisClient, err = services.NewRedisClient(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "error", err)
		}
		defer redisClient.Close()
	}

	// Initialize services
	store := services.NewEventStore(database, cfg.NotificationLimit, logger)
	registry := services.NewPresenceRegistry(logger)
	hub := services.NewHub(registry, logger)
	dispatcher := services.NewDispatcher(hub, registry, redisClient, logger)
	dispatcher.Start()

	// Initialize handlers
	notificationHandler := handlers.NewNotificationHandler(store, logger)
	eventHandler := handlers.NewEventHandler(store, dispatcher, logger)
	presenceHandler := handlers.NewPresenceHandler(registry, logger)
	wsHandler := handlers.NewWebSocketHandler(hub, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Subscription socket
	router.GET("/ws", middleware.Auth(cfg.JWTSecret), wsHandler.Serve)

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTSecret))
	{
		// Notification routes
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/broadcast", notificationHandler.ListBroadcast)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
			notifications.PUT("/:id/join-status", notificationHandler.UpdateJoinStatus)
		}

		// Producer ingress routes
		events := v1.Group("/events")
		{
			events.POST("", eventHandler.CreateEvent)
			events.POST("/refresh", eventHandler.RequestRefresh)
		}

		// Presence routes
		presence := v1.Group("/presence")
		{
			presence.GET("/online", presenceHandler.GetOnlineUsers)
			presence.POST("/check", presenceHandler.CheckPresence)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting Notification Service", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the dispatcher relay
	dispatcher.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
