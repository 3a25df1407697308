package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/app"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("Failed to build logger", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.FromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start backend", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	// orders.placed -> OrderService confirms the order -> orders.confirmed
	go a.RunConsumers(ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "addr", httpServer.Addr, "storage", cfg.Storage)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "err", err)
	}
}
