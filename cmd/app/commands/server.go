package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/orderbus/internal/app"
	"github.com/allisson/orderbus/internal/config"
)

// listener is a server that blocks in Start until Shutdown.
type listener interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type namedListener struct {
	name string
	l    listener
}

// serveUntil starts every listener and blocks until ctx is done or one of them
// fails, then shuts them all down within grace.
func serveUntil(ctx context.Context, logger *slog.Logger, grace time.Duration, listeners ...namedListener) error {
	failed := make(chan error, len(listeners))
	for _, nl := range listeners {
		go func() {
			if err := nl.l.Start(ctx); err != nil {
				failed <- fmt.Errorf("%s server: %w", nl.name, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-failed:
		logger.Error("server failed, shutting down", slog.Any("error", runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	errs := []error{runErr}
	for _, nl := range listeners {
		if err := nl.l.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", nl.name, err))
		}
	}
	return errors.Join(errs...)
}

// RunServer serves the API, plus metrics when enabled, until SIGINT/SIGTERM.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))
	defer closeContainer(container, logger)

	api, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	listeners := []namedListener{{"api", api}}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if metricsServer != nil {
		listeners = append(listeners, namedListener{"metrics", metricsServer})
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveUntil(ctx, logger, cfg.DBConnMaxLifetime, listeners...)
}
