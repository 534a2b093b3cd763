package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("api_test")
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, provider.Shutdown(context.Background())) })

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "api_test"))
	router.GET("/v1/orders/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.POST("/v1/orders", func(c *gin.Context) {
		c.Status(http.StatusUnprocessableEntity)
	})

	requests := []struct {
		method, path string
		wantCode     int
	}{
		{http.MethodGet, "/v1/orders/0190a7d4-0000-7000-8000-000000000001", http.StatusOK},
		{http.MethodGet, "/v1/orders/0190a7d4-0000-7000-8000-000000000002", http.StatusOK},
		{http.MethodPost, "/v1/orders", http.StatusUnprocessableEntity},
		{http.MethodGet, "/v1/carts", http.StatusNotFound},
	}
	for _, r := range requests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(r.method, r.path, nil))
		require.Equal(t, r.wantCode, w.Code)
	}

	output := scrape(t, provider)

	assertMetricLine(t, output, "api_test_http_requests_total",
		`method="GET".*path="/v1/orders/:id".*status_code="200"`, "2")
	assertMetricLine(t, output, "api_test_http_requests_total",
		`method="POST".*path="/v1/orders".*status_code="422"`, "1")
	assertMetricLine(t, output, "api_test_http_requests_total",
		`path="unknown".*status_code="404"`, "1")
	assertMetricLine(t, output, "api_test_http_request_duration_seconds_count",
		`path="/v1/orders/:id"`, "2")
	assert.NotContains(t, output, "0190a7d4-0000-7000-8000-000000000001")
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/shipments/:id/status", routeLabel("/v1/shipments/:id/status"))
	assert.Equal(t, "unknown", routeLabel(""))
}
