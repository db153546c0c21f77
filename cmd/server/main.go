package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"access-service/internal/app"
	"access-service/internal/config"
	"access-service/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger config lives inside cfg; fall back to defaults.
		_ = logger.Init("info", "json")
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		_ = logger.Init("info", "json")
		logger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("access-service started", zap.Int("port", cfg.Server.Port))

	<-ctx.Done() // wait for Ctrl+C

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("access-service stopped cleanly")
}
