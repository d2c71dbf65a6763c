package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bloorange/piCtureX/internal/catalog"
	"github.com/bloorange/piCtureX/internal/config"
	"github.com/bloorange/piCtureX/internal/handler"
	"github.com/bloorange/piCtureX/internal/middleware"
	"github.com/bloorange/piCtureX/internal/pipeline"
	"github.com/bloorange/piCtureX/internal/storage"
	"github.com/bloorange/piCtureX/pkg/database/postgres"
	redisclient "github.com/bloorange/piCtureX/pkg/database/redis"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("connecting to PostgreSQL")
	pgPool, err := postgres.NewClient(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	if err := postgres.RunMigrations(ctx, pgPool); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	logger.Info("connecting to Redis")
	redisClient, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	store, err := storage.NewDiskStore(cfg.UploadDir, cfg.ThumbnailDir)
	if err != nil {
		logger.Fatal("failed to initialize disk store", zap.Error(err))
	}

	cat := catalog.NewPostgresCatalog(pgPool)
	pipe := pipeline.NewService(store, cat, logger, cfg.ThumbnailWidth, cfg.ThumbnailHeight)
	h := handler.NewHandler(pipe, cat, cat, store, redisClient, logger,
		cfg.JWTSecret, cfg.JWTTTL, cfg.MaxUploadSize)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.ZapLogger(logger), gin.Recovery())
	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down gracefully")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
