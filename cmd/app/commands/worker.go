package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/orderbus/internal/app"
	"github.com/allisson/orderbus/internal/config"
)

// RunWorker runs the outbox publisher, retention sweeps, webhook delivery,
// webhook fan-out and the carrier consumer until SIGINT/SIGTERM. The metrics
// server runs alongside when enabled.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version))
	defer closeContainer(container, logger)

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	workersDone := make(chan error, 1)
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	go func() {
		workersDone <- container.RunWorkers(workerCtx)
		cancelWorkers()
	}()

	var serveErr error
	if metricsServer != nil {
		serveErr = serveUntil(workerCtx, logger, cfg.DBConnMaxLifetime, namedListener{"metrics", metricsServer})
	} else {
		<-workerCtx.Done()
	}
	cancelWorkers()

	workerErr := <-workersDone
	if errors.Is(workerErr, context.Canceled) {
		workerErr = nil
	}
	if workerErr != nil {
		workerErr = fmt.Errorf("worker failed: %w", workerErr)
	}

	logger.Info("worker stopped")
	return errors.Join(workerErr, serveErr)
}
