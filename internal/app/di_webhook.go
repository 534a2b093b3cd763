package app

import (
	"context"
	"fmt"

	webhookHTTP "github.com/allisson/orderbus/internal/webhook/http"
	webhookRepository "github.com/allisson/orderbus/internal/webhook/repository"
	webhookService "github.com/allisson/orderbus/internal/webhook/service"
	webhookUseCase "github.com/allisson/orderbus/internal/webhook/usecase"
)

// SubscriptionRepository returns the webhook subscription repository for the configured driver.
func (c *Container) SubscriptionRepository() (webhookUseCase.SubscriptionRepository, error) {
	return resolve(c, "subscriptionRepository", &c.subscriptionRepositoryInit, &c.subscriptionRepository,
		c.initSubscriptionRepository)
}

// DeliveryRepository returns the webhook delivery repository for the configured driver.
func (c *Container) DeliveryRepository() (webhookUseCase.DeliveryRepository, error) {
	return resolve(c, "deliveryRepository", &c.deliveryRepositoryInit, &c.deliveryRepository,
		c.initDeliveryRepository)
}

// SecretCipher returns the keeper that encrypts subscription signing secrets.
func (c *Container) SecretCipher() (*webhookService.SecretCipher, error) {
	return resolve(c, "secretCipher", &c.secretCipherInit, &c.secretCipher,
		func() (*webhookService.SecretCipher, error) {
			cipher, err := webhookService.OpenSecretCipher(context.Background(), c.config.WebhookSecretKeeperURI)
			if err != nil {
				return nil, fmt.Errorf("failed to open webhook secret keeper: %w", err)
			}
			return cipher, nil
		})
}

// WebhookSender returns the HTTP client used for webhook calls.
func (c *Container) WebhookSender() *webhookService.HTTPSender {
	c.senderInit.Do(func() {
		c.sender = webhookService.NewHTTPSender(c.config.WebhookTimeout)
	})
	return c.sender
}

// SubscriptionUseCase returns the subscription operator use case.
func (c *Container) SubscriptionUseCase() (webhookUseCase.SubscriptionUseCase, error) {
	return resolve(c, "subscriptionUseCase", &c.subscriptionUseCaseInit, &c.subscriptionUseCase,
		c.initSubscriptionUseCase)
}

// DeliveryUseCase returns the webhook delivery worker.
func (c *Container) DeliveryUseCase() (*webhookUseCase.DeliveryUseCase, error) {
	return resolve(c, "deliveryUseCase", &c.deliveryUseCaseInit, &c.deliveryUseCase, c.initDeliveryUseCase)
}

// FanoutUseCase returns the handler turning bus events into deliveries.
func (c *Container) FanoutUseCase() (*webhookUseCase.FanoutUseCase, error) {
	return resolve(c, "fanoutUseCase", &c.fanoutUseCaseInit, &c.fanoutUseCase,
		func() (*webhookUseCase.FanoutUseCase, error) {
			guard, err := c.Guard()
			if err != nil {
				return nil, fmt.Errorf("failed to get idempotency guard for fanout use case: %w", err)
			}
			subscriptions, err := c.SubscriptionRepository()
			if err != nil {
				return nil, fmt.Errorf("failed to get subscription repository for fanout use case: %w", err)
			}
			deliveries, err := c.DeliveryRepository()
			if err != nil {
				return nil, fmt.Errorf("failed to get delivery repository for fanout use case: %w", err)
			}
			return webhookUseCase.NewFanoutUseCase(guard, subscriptions, deliveries, c.Logger()), nil
		})
}

// SubscriptionHandler returns the HTTP handler for webhook subscriptions.
func (c *Container) SubscriptionHandler() (*webhookHTTP.SubscriptionHandler, error) {
	return resolve(c, "subscriptionHandler", &c.subscriptionHandlerInit, &c.subscriptionHandler,
		func() (*webhookHTTP.SubscriptionHandler, error) {
			useCase, err := c.SubscriptionUseCase()
			if err != nil {
				return nil, fmt.Errorf("failed to get subscription use case for subscription handler: %w", err)
			}
			return webhookHTTP.NewSubscriptionHandler(useCase, c.Logger()), nil
		})
}

func (c *Container) initSubscriptionRepository() (webhookUseCase.SubscriptionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for subscription repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return webhookRepository.NewMySQLSubscriptionRepository(db), nil
	case "postgres":
		return webhookRepository.NewPostgreSQLSubscriptionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initDeliveryRepository() (webhookUseCase.DeliveryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for delivery repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return webhookRepository.NewMySQLDeliveryRepository(db), nil
	case "postgres":
		return webhookRepository.NewPostgreSQLDeliveryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initSubscriptionUseCase() (webhookUseCase.SubscriptionUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for subscription use case: %w", err)
	}
	subscriptions, err := c.SubscriptionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription repository for subscription use case: %w", err)
	}
	deliveries, err := c.DeliveryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery repository for subscription use case: %w", err)
	}
	cipher, err := c.SecretCipher()
	if err != nil {
		return nil, err
	}

	baseUseCase := webhookUseCase.NewSubscriptionUseCase(txManager, subscriptions, deliveries, cipher, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for subscription use case: %w", err)
		}
		return webhookUseCase.NewSubscriptionUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initDeliveryUseCase() (*webhookUseCase.DeliveryUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for delivery use case: %w", err)
	}
	deliveries, err := c.DeliveryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery repository for delivery use case: %w", err)
	}
	subscriptions, err := c.SubscriptionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription repository for delivery use case: %w", err)
	}
	cipher, err := c.SecretCipher()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for delivery use case: %w", err)
	}

	config := webhookUseCase.DeliveryConfig{
		Interval:    c.config.WebhookInterval,
		BatchSize:   c.config.WebhookBatchSize,
		Concurrency: c.config.WebhookConcurrency,
	}
	return webhookUseCase.NewDeliveryUseCase(
		config, txManager, deliveries, subscriptions, c.WebhookSender(), cipher, businessMetrics, c.Logger(),
	), nil
}
