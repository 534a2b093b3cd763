package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/orderbus/internal/metrics"
)

// MetricsServer exposes /metrics on its own port, plus /health so the worker
// process, which has no API server, can be probed.
type MetricsServer struct {
	server *http.Server
	logger *slog.Logger
}

// NewMetricsServer mounts provider's scrape handler. A nil provider leaves
// only /health.
func NewMetricsServer(host string, port int, logger *slog.Logger, provider *metrics.Provider) *MetricsServer {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if provider != nil {
		router.GET("/metrics", gin.WrapH(provider.Handler()))
	}

	srv := newStdServer(host, port)
	srv.Handler = router
	return &MetricsServer{server: srv, logger: logger}
}

// Handler returns the router serving /metrics and /health.
func (s *MetricsServer) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks until the server stops. A graceful shutdown returns nil.
func (s *MetricsServer) Start(ctx context.Context) error {
	return listen(s.server, s.logger, "metrics")
}

// Shutdown gracefully shuts down the metrics HTTP server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.server.Shutdown(ctx)
}

func newStdServer(host string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func listen(srv *http.Server, logger *slog.Logger, name string) error {
	logger.Info("starting http listener", slog.String("listener", name), slog.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listener: %w", name, err)
	}
	return nil
}
