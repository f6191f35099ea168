package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ttys3/gitea-sso/internal/app"
	"github.com/ttys3/gitea-sso/internal/config"
	"github.com/ttys3/gitea-sso/internal/logger"
)

func main() {
	logger.Init()
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	go func() {
		if err := application.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("gitea-sso started", map[string]any{
		"port": cfg.AppPort,
	})

	<-ctx.Done()

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("gitea-sso stopped cleanly", nil)
}
