// Package http provides the HTTP server, router and shared middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/config"
	"github.com/allisson/orderbus/internal/metrics"
	orderHTTP "github.com/allisson/orderbus/internal/order/http"
	outboxHTTP "github.com/allisson/orderbus/internal/outbox/http"
	returnsHTTP "github.com/allisson/orderbus/internal/returns/http"
	shipmentHTTP "github.com/allisson/orderbus/internal/shipment/http"
	webhookHTTP "github.com/allisson/orderbus/internal/webhook/http"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the per-context HTTP handlers mounted under /v1.
type Handlers struct {
	Order        *orderHTTP.OrderHandler
	Shipment     *shipmentHTTP.ShipmentHandler
	Return       *returnsHTTP.ReturnHandler
	Subscription *webhookHTTP.SubscriptionHandler
	Outbox       *outboxHTTP.OutboxHandler
}

// Server represents the HTTP server
type Server struct {
	db     *sql.DB
	bus    Pinger
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: newStdServer(host, port),
	}
}

// SetupRouter builds the gin engine with middleware and every route.
// metricsProvider and bus may be nil.
func (s *Server) SetupRouter(
	cfg *config.Config,
	handlers Handlers,
	metricsProvider *metrics.Provider,
	bus Pinger,
) {
	s.bus = bus

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if cfg.MetricsEnabled && metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	if corsMiddleware := newCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	if h := handlers.Order; h != nil {
		orders := v1.Group("/orders")
		orders.POST("", h.CreateHandler)
		orders.GET("", h.ListHandler)
		orders.GET("/:id", h.GetHandler)
		orders.POST("/:id/status", h.TransitionHandler)
		orders.POST("/:id/shipments", h.ShipHandler)
	}

	if h := handlers.Shipment; h != nil {
		v1.GET("/orders/:id/shipments", h.ListByOrderHandler)
		v1.GET("/shipments/:id", h.GetHandler)
		v1.POST("/shipments/:id/status", h.TransitionHandler)
	}

	if h := handlers.Return; h != nil {
		v1.POST("/orders/:id/returns", h.RequestHandler)
		v1.GET("/orders/:id/returns", h.ListByOrderHandler)
		v1.GET("/returns/:id", h.GetHandler)
		v1.POST("/returns/:id/status", h.TransitionHandler)
	}

	if h := handlers.Subscription; h != nil {
		subs := v1.Group("/webhooks/subscriptions")
		subs.POST("", h.CreateHandler)
		subs.GET("", h.ListHandler)
		subs.GET("/:id", h.GetHandler)
		subs.POST("/:id/reactivate", h.ReactivateHandler)
		subs.POST("/:id/deactivate", h.DeactivateHandler)
		subs.POST("/:id/rotate-secret", h.RotateSecretHandler)
		subs.GET("/:id/deliveries", h.ListDeliveriesHandler)
		v1.POST("/webhooks/deliveries/:id/requeue", h.RequeueDeliveryHandler)
	}

	if h := handlers.Outbox; h != nil {
		v1.GET("/outbox/events", h.ListHandler)
		v1.POST("/outbox/events/:id/requeue", h.RequeueHandler)
	}

	s.router = router
}

// Router returns the configured engine, or nil before SetupRouter.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves the router until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured")
	}
	s.server.Handler = s.router
	return listen(s.server, s.logger, "api")
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler pings the database and, when configured, the event bus.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{}
	ready := true

	if s.db == nil || s.db.PingContext(ctx) != nil {
		components["database"] = "error"
		ready = false
	} else {
		components["database"] = "ok"
	}

	if s.bus != nil {
		if err := s.bus.Ping(ctx); err != nil {
			components["bus"] = "error"
			ready = false
		} else {
			components["bus"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
