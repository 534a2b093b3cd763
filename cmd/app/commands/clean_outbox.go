package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	outboxUseCase "github.com/allisson/orderbus/internal/outbox/usecase"
)

// RunCleanOutbox deletes SENT outbox rows older than days, archiving them first
// when an archive is configured. dryRun only counts them.
func RunCleanOutbox(
	ctx context.Context,
	cleanupUseCase outboxUseCase.CleanupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning outbox events",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	count, err := cleanupUseCase.DeleteSentOlderThan(ctx, days, dryRun)
	if err != nil {
		return fmt.Errorf("failed to delete outbox events: %w", err)
	}

	text := fmt.Sprintf("Successfully deleted %d sent outbox event(s) older than %d day(s)", count, days)
	if dryRun {
		text = fmt.Sprintf("Dry-run mode: Would delete %d sent outbox event(s) older than %d day(s)", count, days)
	}
	result := map[string]any{
		"count":   count,
		"days":    days,
		"dry_run": dryRun,
	}
	if err := writeResult(writer, format, result, text); err != nil {
		return err
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)
	return nil
}
