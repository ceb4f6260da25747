package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pixelpaws/settlement-service/internal/config"
	"github.com/pixelpaws/settlement-service/internal/infrastructure/database"
	httpServer "github.com/pixelpaws/settlement-service/internal/infrastructure/http"
	"github.com/pixelpaws/settlement-service/internal/logger"
	"github.com/pixelpaws/settlement-service/internal/middleware/ratelimit"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Rate-limit counter store: shared redis when configured, otherwise
	// process memory (single instance only).
	var store ratelimit.CounterStore
	if cfg.RateLimit.Redis.Addr != "" {
		redisClient, err := ratelimit.NewRedisClient(cfg.RateLimit.Redis.Addr,
			cfg.RateLimit.Redis.Password, cfg.RateLimit.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		store = ratelimit.NewRedisStore(redisClient)
	} else {
		zapLogger.Warn("Rate limit store is in-process memory; do not run multiple instances")
		store = ratelimit.NewMemoryStore()
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, store)

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down server...")

	if err := httpSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
