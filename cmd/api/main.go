// Command api runs the HTTP API as a long-lived server for local development
// and container deployments. It also serves Prometheus metrics on /metrics.
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

	"awsugmdu-backend/internal/config"
	"awsugmdu-backend/internal/di"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Shutdown()

	handler := container.Handler
	handler.Handle("/metrics", container.Metrics.Handler())

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.Tracer.Handler(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("surface", cfg.APISurface),
			zap.String("storage", cfg.StorageBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}
	container.Logger.Info("Server stopped")
}
