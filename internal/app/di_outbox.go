package app

import (
	"context"
	"fmt"

	"github.com/allisson/orderbus/internal/archive"
	"github.com/allisson/orderbus/internal/bus"
	outboxHTTP "github.com/allisson/orderbus/internal/outbox/http"
	outboxRepository "github.com/allisson/orderbus/internal/outbox/repository"
	outboxUseCase "github.com/allisson/orderbus/internal/outbox/usecase"
)

// OutboxRepository returns the outbox event repository for the configured driver.
func (c *Container) OutboxRepository() (outboxUseCase.OutboxEventRepository, error) {
	return resolve(c, "outboxRepository", &c.outboxRepositoryInit, &c.outboxRepository, c.initOutboxRepository)
}

// OutboxUseCase returns the publisher loop and operator controls.
func (c *Container) OutboxUseCase() (*outboxUseCase.OutboxUseCase, error) {
	return resolve(c, "outboxUseCase", &c.outboxUseCaseInit, &c.outboxUseCase, c.initOutboxUseCase)
}

// OutboxArchiver returns the retention archive, or nil when OutboxArchiveURL is empty.
func (c *Container) OutboxArchiver() (*archive.Archiver, error) {
	return resolve(c, "archiver", &c.archiverInit, &c.archiver, func() (*archive.Archiver, error) {
		if c.config.OutboxArchiveURL == "" {
			return nil, nil
		}
		archiver, err := archive.Open(context.Background(), c.config.OutboxArchiveURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open outbox archive: %w", err)
		}
		return archiver, nil
	})
}

// CleanupUseCase returns the retention sweep for SENT outbox rows.
func (c *Container) CleanupUseCase() (outboxUseCase.CleanupUseCase, error) {
	return resolve(c, "cleanupUseCase", &c.cleanupUseCaseInit, &c.cleanupUseCase, c.initCleanupUseCase)
}

// OutboxHandler returns the HTTP handler for outbox operator controls.
func (c *Container) OutboxHandler() (*outboxHTTP.OutboxHandler, error) {
	return resolve(c, "outboxHandler", &c.outboxHandlerInit, &c.outboxHandler,
		func() (*outboxHTTP.OutboxHandler, error) {
			useCase, err := c.OutboxUseCase()
			if err != nil {
				return nil, fmt.Errorf("failed to get outbox use case for outbox handler: %w", err)
			}
			return outboxHTTP.NewOutboxHandler(useCase, c.Logger()), nil
		})
}

func (c *Container) initOutboxRepository() (outboxUseCase.OutboxEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return outboxRepository.NewMySQLOutboxEventRepository(db), nil
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOutboxUseCase wires the bus publisher lazily: the API only needs the
// operator controls, so a missing bus must not stop it from starting.
func (c *Container) initOutboxUseCase() (*outboxUseCase.OutboxUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}
	repo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbox use case: %w", err)
	}

	config := outboxUseCase.Config{
		Interval:   c.config.OutboxInterval,
		BatchSize:  c.config.OutboxBatchSize,
		MaxRetries: c.config.OutboxMaxRetries,
	}
	return outboxUseCase.NewOutboxUseCase(
		config, txManager, repo, &lazyPublisher{container: c}, businessMetrics, c.Logger(),
	), nil
}

func (c *Container) initCleanupUseCase() (outboxUseCase.CleanupUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for cleanup use case: %w", err)
	}
	repo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for cleanup use case: %w", err)
	}
	archiver, err := c.OutboxArchiver()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for cleanup use case: %w", err)
	}

	var sink outboxUseCase.Archiver
	if archiver != nil {
		sink = archiver
	}

	config := outboxUseCase.RetentionConfig{
		Days:     c.config.OutboxRetentionDays,
		Interval: c.config.OutboxRetentionInterval,
	}
	return outboxUseCase.NewCleanupUseCase(config, txManager, repo, sink, businessMetrics, c.Logger()), nil
}

// lazyPublisher resolves the bus publisher on first publish.
type lazyPublisher struct {
	container *Container
}

func (p *lazyPublisher) Publish(ctx context.Context, topic string, env bus.Envelope) error {
	publisher, err := p.container.BusPublisher()
	if err != nil {
		return fmt.Errorf("event bus unavailable: %w", err)
	}
	return publisher.Publish(ctx, topic, env)
}
