// Package main runs the venue platform HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/expo-venue/backend/config"
	"github.com/expo-venue/backend/internal/announcements"
	"github.com/expo-venue/backend/internal/auth"
	"github.com/expo-venue/backend/internal/checkins"
	"github.com/expo-venue/backend/internal/middleware"
	"github.com/expo-venue/backend/internal/notify"
	"github.com/expo-venue/backend/internal/posters"
	"github.com/expo-venue/backend/internal/presence"
	"github.com/expo-venue/backend/internal/rooms"
	"github.com/expo-venue/backend/internal/stage"
	"github.com/expo-venue/backend/internal/stats"
	"github.com/expo-venue/backend/pkg/database"
	"github.com/expo-venue/backend/pkg/queue"
	"github.com/expo-venue/backend/pkg/redis"
	"github.com/expo-venue/backend/pkg/response"
	"github.com/expo-venue/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			PostersBucket:        cfg.AWS.PostersBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	pubsub := notify.NewRedisPubSub(rdb.Client, logger)
	hub := notify.NewHub(logger, pubsub, pubsub)
	defer hub.Close()

	presenceClient := presence.NewClient(
		cfg.Presence.BaseURL,
		cfg.Presence.SharedSecret,
		time.Duration(cfg.Presence.TimeoutSec)*time.Second,
		logger,
	)

	aggregator := stats.NewAggregator(cfg.Stats.UTCOffsetMinutes, logger)
	venueLoc := aggregator.Location()

	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Rooms: schedule, live status, join
	roomRepo := rooms.NewRepository(pool)
	reconciler := rooms.NewReconciler(roomRepo, presenceClient, cfg.Presence.Concurrency, logger)
	roomHandler := rooms.NewHandler(roomRepo, reconciler, presenceClient, hub, jobQueue, venueLoc, logger)

	// Announcements
	announcementRepo := announcements.NewRepository(pool)
	announcementHandler := announcements.NewHandler(announcementRepo, hub)

	// In-person check-ins
	checkinRepo := checkins.NewRepository(pool)
	checkinHandler := checkins.NewHandler(checkinRepo, hub, venueLoc, logger)

	// Participation statistics
	statsRepo := stats.NewRepository(pool)
	statsHandler := stats.NewHandler(statsRepo, aggregator)

	// Main stage
	stageHandler := stage.NewHandler(rdb, hub, logger)

	// Posters (S3-backed)
	posterRepo := posters.NewRepository(pool)
	posterHandler := posters.NewHandler(posterRepo, roomRepo, s3Client, logger)

	jwtValidate := func(token string) (string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.UserID.String(), nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Schedule and live status
		api.GET("/rooms", roomHandler.List)
		api.GET("/rooms/status", roomHandler.Status)
		api.POST("/rooms", middleware.RequireRole("admin"), roomHandler.Create)
		api.GET("/rooms/:id", roomHandler.GetByID)
		api.PATCH("/rooms/:id", middleware.RequireRole("admin"), roomHandler.Update)
		api.DELETE("/rooms/:id", middleware.RequireRole("admin"), roomHandler.Delete)
		api.GET("/rooms/:id/join", roomHandler.Join)

		// Announcements
		api.GET("/announcements", announcementHandler.List)
		api.POST("/announcements", middleware.RequireRole("admin"), announcementHandler.Create)
		api.DELETE("/announcements/:id", middleware.RequireRole("admin"), announcementHandler.Delete)

		// In-person check-ins (venue desk)
		api.POST("/checkins", middleware.RequireRole("admin"), checkinHandler.Create)
		api.GET("/checkins", middleware.RequireRole("admin"), checkinHandler.List)

		// Daily participation statistics
		api.GET("/stats", middleware.RequireRole("admin"), statsHandler.Get)

		// Main stage
		api.GET("/stage", stageHandler.Get)
		api.PUT("/stage", middleware.RequireRole("admin"), stageHandler.Update)
		api.POST("/stage/live", middleware.RequireRole("admin"), stageHandler.SetLive)
		api.POST("/stage/progress", middleware.RequireRole("admin"), stageHandler.SetProgress)

		// Posters
		api.POST("/projects/:id/posters", posterHandler.Upload)
		api.GET("/projects/:id/posters", posterHandler.ListByProject)
		api.GET("/posters/:id/download-url", posterHandler.DownloadURL)
		api.DELETE("/posters/:id", posterHandler.Delete)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", notify.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
