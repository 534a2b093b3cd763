package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/orderbus/internal/config"
	"github.com/allisson/orderbus/internal/metrics"
	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	orderHTTP "github.com/allisson/orderbus/internal/order/http"
	orderMocks "github.com/allisson/orderbus/internal/order/http/mocks"
	outboxDomain "github.com/allisson/orderbus/internal/outbox/domain"
	outboxHTTP "github.com/allisson/orderbus/internal/outbox/http"
	outboxMocks "github.com/allisson/orderbus/internal/outbox/http/mocks"
	"github.com/allisson/orderbus/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func serve(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthHandler(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, discardLogger())

	c, w := testutil.NewGinContext(http.MethodGet, "/health", nil)
	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		withDB     bool
		bus        Pinger
		wantCode   int
		wantStatus string
		components map[string]any
	}{
		{
			name:       "no database",
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			components: map[string]any{"database": "error"},
		},
		{
			name:       "database without bus",
			withDB:     true,
			wantCode:   http.StatusOK,
			wantStatus: "ready",
			components: map[string]any{"database": "ok"},
		},
		{
			name:       "database and bus",
			withDB:     true,
			bus:        stubPinger{},
			wantCode:   http.StatusOK,
			wantStatus: "ready",
			components: map[string]any{"database": "ok", "bus": "ok"},
		},
		{
			name:       "bus down",
			withDB:     true,
			bus:        stubPinger{err: errors.New("connection refused")},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			components: map[string]any{"database": "ok", "bus": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(nil, "localhost", 8080, discardLogger())
			if tt.withDB {
				server.db, _ = testutil.NewMockDB(t)
			}
			server.bus = tt.bus

			c, w := testutil.NewGinContext(http.MethodGet, "/ready", nil)
			server.readinessHandler(c)

			assert.Equal(t, tt.wantCode, w.Code)
			var body struct {
				Status     string         `json:"status"`
				Components map[string]any `json:"components"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.components, body.Components)
		})
	}
}

func TestCustomLoggerMiddleware_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	router := gin.New()
	router.Use(CustomLoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	tests := []struct {
		path      string
		wantLevel string
	}{
		{"/ok?limit=10", "INFO"},
		{"/missing", "WARN"},
		{"/boom", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()
			serve(t, router, http.MethodGet, tt.path)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.path, entry["path"])
		})
	}
}

func TestServer_SetupRouter(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, discardLogger())
	cfg := &config.Config{RateLimitEnabled: true, RateLimitRequestsPerSec: 10, RateLimitBurst: 20}

	server.SetupRouter(cfg, Handlers{}, nil, nil)
	router := server.Router()
	require.NotNil(t, router)

	w := serve(t, router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	assert.NoError(t, err)

	// Routes of a missing handler are not mounted, and /metrics lives on its own server.
	assert.Equal(t, http.StatusNotFound, serve(t, router, http.MethodGet, "/v1/orders/abc").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, router, http.MethodGet, "/metrics").Code)
}

func TestServer_SetupRouterMountsHandlers(t *testing.T) {
	logger := discardLogger()
	orderUseCase := &orderMocks.MockOrderUseCase{}
	operatorUseCase := &outboxMocks.MockOperatorUseCase{}

	order := &orderDomain.Order{
		ID:          uuid.Must(uuid.NewV7()),
		SellerID:    uuid.Must(uuid.NewV7()),
		CustomerID:  uuid.Must(uuid.NewV7()),
		TotalAmount: 1500,
		Currency:    "EUR",
		Status:      orderDomain.StatusPaid,
	}
	orderUseCase.On("Get", mock.Anything, order.ID).Return(order, nil)
	operatorUseCase.On("ListByStatus", mock.Anything, outboxDomain.OutboxEventStatusFailed, 0, 50).
		Return([]*outboxDomain.OutboxEvent{}, nil)

	server := NewServer(nil, "localhost", 8080, logger)
	server.SetupRouter(&config.Config{}, Handlers{
		Order:  orderHTTP.NewOrderHandler(orderUseCase, logger),
		Outbox: outboxHTTP.NewOutboxHandler(operatorUseCase, logger),
	}, nil, nil)

	w := serve(t, server.Router(), http.MethodGet, "/v1/orders/"+order.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"PAID"`)

	w = serve(t, server.Router(), http.MethodGet, "/v1/outbox/events")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	orderUseCase.AssertExpectations(t)
	operatorUseCase.AssertExpectations(t)
}

func TestServer_SetupRouterWithMetrics(t *testing.T) {
	provider, err := metrics.NewProvider("orderbus_test")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, provider.Shutdown(context.Background())) })

	server := NewServer(nil, "localhost", 8080, discardLogger())
	server.SetupRouter(&config.Config{MetricsEnabled: true, MetricsNamespace: "orderbus_test"}, Handlers{}, provider, nil)

	serve(t, server.Router(), http.MethodGet, "/health")

	w := serve(t, provider.Handler(), http.MethodGet, "/metrics")
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestServer_StartWithoutRouter(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, discardLogger())
	assert.Error(t, server.Start(context.Background()))
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := NewServer(nil, "127.0.0.1", 0, discardLogger())
	server.SetupRouter(&config.Config{}, Handlers{}, nil, nil)

	done := make(chan error, 1)
	go func() { done <- server.Start(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsServer_Routes(t *testing.T) {
	provider, err := metrics.NewProvider("orderbus_test")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, provider.Shutdown(context.Background())) })

	withProvider := NewMetricsServer("localhost", 8081, discardLogger(), provider)
	w := serve(t, withProvider.Handler(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, serve(t, withProvider.Handler(), http.MethodGet, "/health").Code)

	healthOnly := NewMetricsServer("localhost", 8081, discardLogger(), nil)
	assert.Equal(t, http.StatusNotFound, serve(t, healthOnly.Handler(), http.MethodGet, "/metrics").Code)
	assert.Equal(t, http.StatusOK, serve(t, healthOnly.Handler(), http.MethodGet, "/health").Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(1, 2, discardLogger()))
	router.GET("/v1/orders", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
		req.RemoteAddr = remoteAddr
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)

	limited := send("10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	// Other clients keep their own bucket.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234").Code)
}

func TestRateLimiterStore_RemoveIdle(t *testing.T) {
	store := &rateLimiterStore{rps: 1, burst: 1}
	store.getLimiter("10.0.0.1")

	store.removeIdle(time.Now().Add(-time.Hour))
	_, ok := store.limiters.Load("10.0.0.1")
	assert.True(t, ok)

	store.removeIdle(time.Now().Add(time.Minute))
	_, ok = store.limiters.Load("10.0.0.1")
	assert.False(t, ok)
}
