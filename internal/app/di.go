// Package app provides the dependency injection container that assembles the
// order service, the workers and the operator commands.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/orderbus/internal/archive"
	"github.com/allisson/orderbus/internal/bus"
	"github.com/allisson/orderbus/internal/config"
	"github.com/allisson/orderbus/internal/database"
	"github.com/allisson/orderbus/internal/http"
	idempotencyUseCase "github.com/allisson/orderbus/internal/idempotency/usecase"
	"github.com/allisson/orderbus/internal/metrics"
	orderHTTP "github.com/allisson/orderbus/internal/order/http"
	orderUseCase "github.com/allisson/orderbus/internal/order/usecase"
	outboxHTTP "github.com/allisson/orderbus/internal/outbox/http"
	outboxUseCase "github.com/allisson/orderbus/internal/outbox/usecase"
	returnsHTTP "github.com/allisson/orderbus/internal/returns/http"
	returnsUseCase "github.com/allisson/orderbus/internal/returns/usecase"
	shipmentHTTP "github.com/allisson/orderbus/internal/shipment/http"
	shipmentUseCase "github.com/allisson/orderbus/internal/shipment/usecase"
	webhookHTTP "github.com/allisson/orderbus/internal/webhook/http"
	webhookService "github.com/allisson/orderbus/internal/webhook/service"
	webhookUseCase "github.com/allisson/orderbus/internal/webhook/usecase"
)

// Container holds all application dependencies. Components are created on
// first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	redisClient     *redis.Client
	busPublisher    *bus.Publisher
	archiver        *archive.Archiver
	secretCipher    *webhookService.SecretCipher
	sender          *webhookService.HTTPSender

	// Repositories
	orderRepository          orderStore
	shipmentRepository       shipmentStore
	returnRepository         returnsUseCase.ReturnRepository
	outboxRepository         outboxUseCase.OutboxEventRepository
	processedEventRepository idempotencyUseCase.ProcessedEventRepository
	subscriptionRepository   webhookUseCase.SubscriptionRepository
	deliveryRepository       webhookUseCase.DeliveryRepository

	// Use Cases
	orderUseCase        orderUseCase.OrderUseCase
	shipmentUseCase     shipmentUseCase.ShipmentUseCase
	returnUseCase       returnsUseCase.ReturnUseCase
	outboxUseCase       *outboxUseCase.OutboxUseCase
	cleanupUseCase      outboxUseCase.CleanupUseCase
	guard               *idempotencyUseCase.Guard
	subscriptionUseCase webhookUseCase.SubscriptionUseCase
	deliveryUseCase     *webhookUseCase.DeliveryUseCase
	fanoutUseCase       *webhookUseCase.FanoutUseCase

	// HTTP Handlers
	orderHandler        *orderHTTP.OrderHandler
	shipmentHandler     *shipmentHTTP.ShipmentHandler
	returnHandler       *returnsHTTP.ReturnHandler
	subscriptionHandler *webhookHTTP.SubscriptionHandler
	outboxHandler       *outboxHTTP.OutboxHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	mu                           sync.Mutex
	loggerInit                   sync.Once
	dbInit                       sync.Once
	txManagerInit                sync.Once
	metricsProviderInit          sync.Once
	businessMetricsInit          sync.Once
	redisClientInit              sync.Once
	busPublisherInit             sync.Once
	archiverInit                 sync.Once
	secretCipherInit             sync.Once
	senderInit                   sync.Once
	orderRepositoryInit          sync.Once
	shipmentRepositoryInit       sync.Once
	returnRepositoryInit         sync.Once
	outboxRepositoryInit         sync.Once
	processedEventRepositoryInit sync.Once
	subscriptionRepositoryInit   sync.Once
	deliveryRepositoryInit       sync.Once
	orderUseCaseInit             sync.Once
	shipmentUseCaseInit          sync.Once
	returnUseCaseInit            sync.Once
	outboxUseCaseInit            sync.Once
	cleanupUseCaseInit           sync.Once
	guardInit                    sync.Once
	subscriptionUseCaseInit      sync.Once
	deliveryUseCaseInit          sync.Once
	fanoutUseCaseInit            sync.Once
	orderHandlerInit             sync.Once
	shipmentHandlerInit          sync.Once
	returnHandlerInit            sync.Once
	subscriptionHandlerInit      sync.Once
	outboxHandlerInit            sync.Once
	httpServerInit               sync.Once
	metricsServerInit            sync.Once
	initErrors                   map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// resolve runs init once, caching its value in slot and its error under key.
func resolve[T any](c *Container, key string, once *sync.Once, slot *T, init func() (T, error)) (T, error) {
	once.Do(func() {
		value, err := init()
		if err != nil {
			c.mu.Lock()
			c.initErrors[key] = err
			c.mu.Unlock()
			return
		}
		*slot = value
	})

	c.mu.Lock()
	err, failed := c.initErrors[key]
	c.mu.Unlock()
	if failed {
		var zero T
		return zero, err
	}
	return *slot, nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the JSON logger configured from LogLevel.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	return resolve(c, "db", &c.dbInit, &c.db, c.initDB)
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	return resolve(c, "txManager", &c.txManagerInit, &c.txManager, c.initTxManager)
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return resolve(c, "metricsProvider", &c.metricsProviderInit, &c.metricsProvider, c.initMetricsProvider)
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when
// metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return resolve(c, "businessMetrics", &c.businessMetricsInit, &c.businessMetrics, c.initBusinessMetrics)
}

// RedisClient returns the client backing the event bus.
func (c *Container) RedisClient() (*redis.Client, error) {
	return resolve(c, "redisClient", &c.redisClientInit, &c.redisClient, c.initRedisClient)
}

// BusPublisher returns the partitioned stream publisher.
func (c *Container) BusPublisher() (*bus.Publisher, error) {
	return resolve(c, "busPublisher", &c.busPublisherInit, &c.busPublisher, c.initBusPublisher)
}

// HTTPServer returns the API server with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	return resolve(c, "httpServer", &c.httpServerInit, &c.httpServer, c.initHTTPServer)
}

// MetricsServer returns the Prometheus server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return resolve(c, "metricsServer", &c.metricsServerInit, &c.metricsServer, c.initMetricsServer)
}

// Shutdown releases every initialized resource.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}
	if c.archiver != nil {
		if err := c.archiver.Close(); err != nil {
			errs = append(errs, fmt.Errorf("archive close: %w", err))
		}
	}
	if c.secretCipher != nil {
		if err := c.secretCipher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("secret keeper close: %w", err))
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

func (c *Container) initRedisClient() (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.BusPublishTimeout)
	defer cancel()

	client, err := bus.NewClient(ctx, c.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *Container) initBusPublisher() (*bus.Publisher, error) {
	client, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for bus publisher: %w", err)
	}
	return bus.NewPublisher(client, bus.PublisherConfig{
		StreamPrefix:   c.config.BusStreamPrefix,
		Partitions:     c.config.BusPartitions,
		MaxLen:         c.config.BusStreamMaxLen,
		PublishTimeout: c.config.BusPublishTimeout,
	}), nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	var handlers http.Handlers
	if handlers.Order, err = c.OrderHandler(); err != nil {
		return nil, fmt.Errorf("failed to get order handler: %w", err)
	}
	if handlers.Shipment, err = c.ShipmentHandler(); err != nil {
		return nil, fmt.Errorf("failed to get shipment handler: %w", err)
	}
	if handlers.Return, err = c.ReturnHandler(); err != nil {
		return nil, fmt.Errorf("failed to get return handler: %w", err)
	}
	if handlers.Subscription, err = c.SubscriptionHandler(); err != nil {
		return nil, fmt.Errorf("failed to get subscription handler: %w", err)
	}
	if handlers.Outbox, err = c.OutboxHandler(); err != nil {
		return nil, fmt.Errorf("failed to get outbox handler: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}

	// The API serves without the bus; readiness reports it when reachable.
	var busPinger http.Pinger
	if publisher, err := c.BusPublisher(); err == nil {
		busPinger = publisher
	} else {
		c.Logger().Warn("event bus unavailable, readiness will not report it", slog.Any("error", err))
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.config, handlers, provider, busPinger)
	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
