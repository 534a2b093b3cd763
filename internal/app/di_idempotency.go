package app

import (
	"fmt"

	idempotencyRepository "github.com/allisson/orderbus/internal/idempotency/repository"
	idempotencyUseCase "github.com/allisson/orderbus/internal/idempotency/usecase"
)

// ProcessedEventRepository returns the processed-event repository for the configured driver.
func (c *Container) ProcessedEventRepository() (idempotencyUseCase.ProcessedEventRepository, error) {
	return resolve(c, "processedEventRepository", &c.processedEventRepositoryInit, &c.processedEventRepository,
		c.initProcessedEventRepository)
}

// Guard returns the idempotency guard shared by every consumer.
func (c *Container) Guard() (*idempotencyUseCase.Guard, error) {
	return resolve(c, "guard", &c.guardInit, &c.guard, func() (*idempotencyUseCase.Guard, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for idempotency guard: %w", err)
		}
		repo, err := c.ProcessedEventRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get processed event repository for idempotency guard: %w", err)
		}
		return idempotencyUseCase.NewGuard(txManager, repo, c.Logger()), nil
	})
}

func (c *Container) initProcessedEventRepository() (idempotencyUseCase.ProcessedEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for processed event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return idempotencyRepository.NewMySQLProcessedEventRepository(db), nil
	case "postgres":
		return idempotencyRepository.NewPostgreSQLProcessedEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}
