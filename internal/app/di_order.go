package app

import (
	"fmt"

	orderHTTP "github.com/allisson/orderbus/internal/order/http"
	orderRepository "github.com/allisson/orderbus/internal/order/repository"
	orderUseCase "github.com/allisson/orderbus/internal/order/usecase"
	returnsHTTP "github.com/allisson/orderbus/internal/returns/http"
	returnsRepository "github.com/allisson/orderbus/internal/returns/repository"
	returnsUseCase "github.com/allisson/orderbus/internal/returns/usecase"
	shipmentHTTP "github.com/allisson/orderbus/internal/shipment/http"
	shipmentRepository "github.com/allisson/orderbus/internal/shipment/repository"
	shipmentUseCase "github.com/allisson/orderbus/internal/shipment/usecase"
)

// orderStore is the order repository as seen by every aggregate use case.
type orderStore interface {
	orderUseCase.OrderRepository
	shipmentUseCase.OrderRepository
	returnsUseCase.OrderRepository
}

// shipmentStore is the shipment repository as seen by the order and shipment use cases.
type shipmentStore interface {
	orderUseCase.ShipmentRepository
	shipmentUseCase.ShipmentRepository
}

// OrderRepository returns the order repository for the configured driver.
func (c *Container) OrderRepository() (orderStore, error) {
	return resolve(c, "orderRepository", &c.orderRepositoryInit, &c.orderRepository, c.initOrderRepository)
}

// ShipmentRepository returns the shipment repository for the configured driver.
func (c *Container) ShipmentRepository() (shipmentStore, error) {
	return resolve(c, "shipmentRepository", &c.shipmentRepositoryInit, &c.shipmentRepository,
		c.initShipmentRepository)
}

// ReturnRepository returns the return repository for the configured driver.
func (c *Container) ReturnRepository() (returnsUseCase.ReturnRepository, error) {
	return resolve(c, "returnRepository", &c.returnRepositoryInit, &c.returnRepository, c.initReturnRepository)
}

// OrderUseCase returns the order use case, wrapped with metrics when enabled.
func (c *Container) OrderUseCase() (orderUseCase.OrderUseCase, error) {
	return resolve(c, "orderUseCase", &c.orderUseCaseInit, &c.orderUseCase, c.initOrderUseCase)
}

// ShipmentUseCase returns the shipment use case.
func (c *Container) ShipmentUseCase() (shipmentUseCase.ShipmentUseCase, error) {
	return resolve(c, "shipmentUseCase", &c.shipmentUseCaseInit, &c.shipmentUseCase, c.initShipmentUseCase)
}

// ReturnUseCase returns the return use case.
func (c *Container) ReturnUseCase() (returnsUseCase.ReturnUseCase, error) {
	return resolve(c, "returnUseCase", &c.returnUseCaseInit, &c.returnUseCase, c.initReturnUseCase)
}

// OrderHandler returns the HTTP handler for orders.
func (c *Container) OrderHandler() (*orderHTTP.OrderHandler, error) {
	return resolve(c, "orderHandler", &c.orderHandlerInit, &c.orderHandler, func() (*orderHTTP.OrderHandler, error) {
		useCase, err := c.OrderUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get order use case for order handler: %w", err)
		}
		return orderHTTP.NewOrderHandler(useCase, c.Logger()), nil
	})
}

// ShipmentHandler returns the HTTP handler for shipments.
func (c *Container) ShipmentHandler() (*shipmentHTTP.ShipmentHandler, error) {
	return resolve(c, "shipmentHandler", &c.shipmentHandlerInit, &c.shipmentHandler,
		func() (*shipmentHTTP.ShipmentHandler, error) {
			useCase, err := c.ShipmentUseCase()
			if err != nil {
				return nil, fmt.Errorf("failed to get shipment use case for shipment handler: %w", err)
			}
			return shipmentHTTP.NewShipmentHandler(useCase, c.Logger()), nil
		})
}

// ReturnHandler returns the HTTP handler for returns.
func (c *Container) ReturnHandler() (*returnsHTTP.ReturnHandler, error) {
	return resolve(c, "returnHandler", &c.returnHandlerInit, &c.returnHandler,
		func() (*returnsHTTP.ReturnHandler, error) {
			useCase, err := c.ReturnUseCase()
			if err != nil {
				return nil, fmt.Errorf("failed to get return use case for return handler: %w", err)
			}
			return returnsHTTP.NewReturnHandler(useCase, c.Logger()), nil
		})
}

func (c *Container) initOrderRepository() (orderStore, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for order repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return orderRepository.NewMySQLOrderRepository(db), nil
	case "postgres":
		return orderRepository.NewPostgreSQLOrderRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initShipmentRepository() (shipmentStore, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for shipment repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return shipmentRepository.NewMySQLShipmentRepository(db), nil
	case "postgres":
		return shipmentRepository.NewPostgreSQLShipmentRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initReturnRepository() (returnsUseCase.ReturnRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for return repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return returnsRepository.NewMySQLReturnRepository(db), nil
	case "postgres":
		return returnsRepository.NewPostgreSQLReturnRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initOrderUseCase() (orderUseCase.OrderUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for order use case: %w", err)
	}
	orders, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for order use case: %w", err)
	}
	shipments, err := c.ShipmentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment repository for order use case: %w", err)
	}
	outbox, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for order use case: %w", err)
	}

	baseUseCase := orderUseCase.NewOrderUseCase(txManager, orders, shipments, outbox, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for order use case: %w", err)
		}
		return orderUseCase.NewOrderUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initShipmentUseCase() (shipmentUseCase.ShipmentUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for shipment use case: %w", err)
	}
	shipments, err := c.ShipmentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment repository for shipment use case: %w", err)
	}
	orders, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for shipment use case: %w", err)
	}
	outbox, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for shipment use case: %w", err)
	}

	return shipmentUseCase.NewShipmentUseCase(txManager, shipments, orders, outbox, c.Logger()), nil
}

func (c *Container) initReturnUseCase() (returnsUseCase.ReturnUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for return use case: %w", err)
	}
	returns, err := c.ReturnRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get return repository for return use case: %w", err)
	}
	orders, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for return use case: %w", err)
	}
	outbox, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for return use case: %w", err)
	}

	return returnsUseCase.NewReturnUseCase(txManager, returns, orders, outbox, c.Logger()), nil
}
