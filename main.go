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

	"atrium/config"
	"atrium/db"
	"atrium/handlers"
	"atrium/middleware"
	"atrium/services"
	"atrium/store"
	"atrium/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize logger
	logger := utils.NewLogger()

	// Connect to database
	database, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	// Connect to Redis
	redisClient, err := newRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisClient.Close()

	// Initialize services
	documentStore := store.NewPostgres(database)
	publisher := services.NewPublisher()
	engine := services.NewOccupancyEngine(documentStore, publisher, logger, cfg.TxnAttempts, cfg.TxnBackoff)
	roomService := services.NewRoomService(documentStore, publisher, logger)
	userService := services.NewUserService(documentStore, publisher, logger)
	presenceService := services.NewPresenceService(redisClient, engine, logger, cfg.PresenceTTL)
	leaderboardService := services.NewLeaderboardService(database, logger)

	// Initialize handlers
	roomHandler := handlers.NewRoomHandler(roomService, engine, logger)
	userHandler := handlers.NewUserHandler(userService, engine, logger)
	presenceHandler := handlers.NewPresenceHandler(presenceService, logger)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService, logger)
	chatHandler := handlers.NewChatHandler(cfg, logger)
	wsHandler := handlers.NewWSHandler(publisher, documentStore, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "atrium",
			"version": "1.0.0",
		})
	})

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTSecret))
	{
		v1.POST("/session", userHandler.Session)

		rooms := v1.Group("/rooms")
		{
			rooms.GET("", roomHandler.ListRooms)
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("/:id", roomHandler.GetRoom)
			rooms.PATCH("/:id", roomHandler.UpdateRoom)
			rooms.DELETE("/:id", roomHandler.DeleteRoom)
			rooms.POST("/:id/assign", roomHandler.AssignHomeOffice)
			rooms.POST("/:id/visit", roomHandler.VisitOffice)
		}

		users := v1.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PATCH("/:id/status", userHandler.UpdateStatus)
			users.POST("/:id/leave", userHandler.LeaveOffice)
		}

		presence := v1.Group("/presence")
		{
			presence.POST("/heartbeat", presenceHandler.Heartbeat)
			presence.GET("/status", presenceHandler.GetStatus)
			presence.GET("/online", presenceHandler.GetOnlineUsers)
			presence.POST("/visit", presenceHandler.Visit)
			presence.POST("/leave", presenceHandler.Leave)
		}

		leaderboards := v1.Group("/leaderboards")
		{
			leaderboards.GET("/sales", leaderboardHandler.Sales)
			leaderboards.POST("/sales", leaderboardHandler.RecordSale)
			leaderboards.GET("/calls", leaderboardHandler.Calls)
			leaderboards.POST("/calls", leaderboardHandler.RecordCall)
		}

		chat := v1.Group("/chat")
		{
			chat.POST("/spaces", chatHandler.CreateSpace)
			chat.POST("/messages", chatHandler.SendMessage)
			chat.GET("/spaces/:id/messages", chatHandler.ListMessages)
		}

		v1.GET("/ws", wsHandler.Serve)
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
		logger.Info("Starting Atrium", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func newRedisClient(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	opt.DB = cfg.RedisDB

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
