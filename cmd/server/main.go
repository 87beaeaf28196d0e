// Package main runs the session coordinator HTTP server with the event feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pairprep/backend/config"
	"github.com/pairprep/backend/internal/ai"
	"github.com/pairprep/backend/internal/auth"
	"github.com/pairprep/backend/internal/execution"
	"github.com/pairprep/backend/internal/identity"
	"github.com/pairprep/backend/internal/middleware"
	"github.com/pairprep/backend/internal/problems"
	"github.com/pairprep/backend/internal/realtime"
	"github.com/pairprep/backend/internal/sessions"
	"github.com/pairprep/backend/pkg/database"
	"github.com/pairprep/backend/pkg/queue"
	"github.com/pairprep/backend/pkg/redis"
	"github.com/pairprep/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, cfg.Database.DSN(), logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	verifier, err := auth.NewVerifier(bgCtx, cfg.Auth, logger)
	if err != nil {
		logger.Fatal("auth verifier", zap.Error(err))
	}

	// Realtime providers
	calls := realtime.NewLiveKitCalls(cfg.LiveKit)
	chat := realtime.NewChatClient(cfg.Chat)
	coordinator := realtime.NewCoordinator(calls, chat, cfg.Chat.ChannelType, realtime.RetryConfig{
		MaxAttempts:    cfg.Realtime.MaxAttempts,
		AttemptTimeout: cfg.Realtime.CallTimeout,
		InitialDelay:   cfg.Realtime.InitialDelay,
		MaxDelay:       cfg.Realtime.MaxDelay,
		BackoffFactor:  2,
	}, logger)
	credentials := realtime.NewCredentials(calls, chat, cfg.LiveKit.TokenTTL)

	// Session event feed
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub)
	go func() {
		if err := hub.Run(bgCtx); err != nil {
			logger.Error("event hub stopped", zap.Error(err))
		}
	}()

	// Users
	userRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, logger)

	// Problems
	problemRepo := problems.NewRepository(pool)
	problemHandler := problems.NewHandler(problemRepo, logger)

	// Sessions
	sessionRepo := sessions.NewRepository(pool)
	sessionService := sessions.NewService(sessionRepo, coordinator, userRepo, problemRepo, hub, credentials, logger)
	sessionService.SetPageSize(cfg.Sessions.PageSize)
	sessionHandler := sessions.NewHandler(sessionService)

	// AI review and hints; disabled without an API key
	var generator ai.Generator
	if gemini := ai.NewGeminiClient(cfg.Gemini); gemini != nil {
		generator = gemini
	} else {
		logger.Warn("gemini disabled: GEMINI_API_KEY not set")
	}
	aiHandler := ai.NewHandler(generator, logger)

	// Code execution
	executionHandler := execution.NewHandler(execution.NewClient(cfg.Piston), logger)

	// Identity sync webhook
	jobQueue := queue.NewQueue(rdb.Client, logger)
	identityWebhook := identity.NewHandler(jobQueue, cfg.Auth.WebhookSecret, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Webhooks (no bearer token; signature checked in handler)
	if cfg.Auth.WebhookSecret != "" {
		router.POST("/webhooks/identity", identityWebhook.Receive)
	} else {
		logger.Warn("identity webhook disabled: AUTH_WEBHOOK_SECRET not set")
	}

	// Session event feed (token in query; no Authorization header required)
	router.GET("/sessions/events", realtime.ServeWs(hub, logger, verifier.ExternalID))

	// Protected API
	api := router.Group("")
	api.Use(middleware.Authenticate(verifier, userRepo))
	{
		api.GET("/auth/me", authHandler.Me)

		sessionHandler.Register(api.Group("/sessions"))

		api.POST("/problems", problemHandler.Create)
		api.GET("/problems/:id", problemHandler.GetByID)

		api.POST("/ai/analyze", aiHandler.Analyze)
		api.POST("/ai/hint", aiHandler.Hint)

		api.POST("/code/run", executionHandler.Run)
	}

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

	bgCancel()
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
