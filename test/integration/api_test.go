// Package integration provides end-to-end API tests against live PostgreSQL and MySQL databases.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/orderbus/internal/app"
	"github.com/allisson/orderbus/internal/config"
	orderDTO "github.com/allisson/orderbus/internal/order/http/dto"
	outboxDTO "github.com/allisson/orderbus/internal/outbox/http/dto"
	returnsDTO "github.com/allisson/orderbus/internal/returns/http/dto"
	shipmentDTO "github.com/allisson/orderbus/internal/shipment/http/dto"
	"github.com/allisson/orderbus/internal/testutil"
	webhookDTO "github.com/allisson/orderbus/internal/webhook/http/dto"
)

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container *app.Container
	db        *sql.DB
	server    *httptest.Server
	dbDriver  string
}

// makeRequest performs an HTTP request and returns the response and body.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body any,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

// setupIntegrationTest migrates a clean database and serves the full router.
func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var db *sql.DB
	var dsn string
	if dbDriver == "postgres" {
		db = testutil.SetupPostgresDB(t)
		testutil.CleanupPostgresDB(t, db)
		dsn = testutil.GetPostgresTestDSN()
	} else {
		db = testutil.SetupMySQLDB(t)
		testutil.CleanupMySQLDB(t, db)
		dsn = testutil.GetMySQLTestDSN()
	}

	cfg := &config.Config{
		DBDriver:             dbDriver,
		DBConnectionString:   dsn,
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           8080,
		LogLevel:             "error",
		BusStreamPrefix:      "orderbus:",
		BusPartitions:        1,
		BusPublishTimeout:    100 * time.Millisecond,
		OutboxMaxRetries:     3,
	}

	container := app.NewContainer(cfg)

	httpSrv, err := container.HTTPServer()
	require.NoError(t, err, "failed to get HTTP server")

	handler := httpSrv.Router()
	require.NotNil(t, handler, "router should be configured by HTTPServer")

	return &integrationTestContext{
		container: container,
		db:        db,
		server:    httptest.NewServer(handler),
		dbDriver:  dbDriver,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}
	if ctx.container != nil {
		if err := ctx.container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}
	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}
}

var drivers = []struct {
	name     string
	dbDriver string
}{
	{"PostgreSQL", "postgres"},
	{"MySQL", "mysql"},
}

func TestIntegration_Health_BasicChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			resp, body := ctx.makeRequest(t, http.MethodGet, "/health", nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, string(body), "healthy")

			resp, body = ctx.makeRequest(t, http.MethodGet, "/ready", nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, string(body), `"ready"`)
		})
	}
}

// TestIntegration_Order_Lifecycle drives an order from creation to a return
// request and checks that every step staged an outbox event.
func TestIntegration_Order_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			sellerID := uuid.Must(uuid.NewV7())
			var order orderDTO.OrderResponse
			var shipment shipmentDTO.ShipmentResponse

			t.Run("01_CreateOrder", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders", orderDTO.CreateOrderRequest{
					SellerID:    sellerID.String(),
					CustomerID:  uuid.Must(uuid.NewV7()).String(),
					TotalAmount: 4990,
					Currency:    "USD",
				})
				require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
				require.NoError(t, json.Unmarshal(body, &order))
				assert.Equal(t, "PENDING", order.Status)
			})

			t.Run("02_AdvanceToPreparing", func(t *testing.T) {
				for _, status := range []string{"PAID", "CONFIRMED", "PREPARING"} {
					resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+order.ID+"/status",
						orderDTO.TransitionOrderRequest{Status: status})
					require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
					require.NoError(t, json.Unmarshal(body, &order))
					assert.Equal(t, status, order.Status)
				}
			})

			t.Run("03_InvalidTransition", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+order.ID+"/status",
					orderDTO.TransitionOrderRequest{Status: "DELIVERED"})
				assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})

			t.Run("04_ShipOrder", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+order.ID+"/shipments",
					orderDTO.ShipOrderRequest{Carrier: "ups", TrackingNumber: "1Z999"})
				require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

				var shipped orderDTO.ShipOrderResponse
				require.NoError(t, json.Unmarshal(body, &shipped))
				assert.Equal(t, "SHIPPED", shipped.Order.Status)
				assert.Equal(t, "PENDING", shipped.Shipment.Status)
				shipment = shipped.Shipment
			})

			t.Run("05_CarrierProgressMovesOrder", func(t *testing.T) {
				for _, status := range []string{"PICKED_UP", "IN_TRANSIT", "OUT_FOR_DELIVERY", "DELIVERED"} {
					resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/shipments/"+shipment.ID+"/status",
						shipmentDTO.TransitionShipmentRequest{Status: status})
					require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
				}

				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/orders/"+order.ID, nil)
				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.NoError(t, json.Unmarshal(body, &order))
				assert.Equal(t, "DELIVERED", order.Status)
			})

			t.Run("06_RequestReturn", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+order.ID+"/returns",
					returnsDTO.RequestReturnRequest{Reason: "damaged box"})
				require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

				var ret returnsDTO.ReturnResponse
				require.NoError(t, json.Unmarshal(body, &ret))
				assert.Equal(t, "REQUESTED", ret.Status)
			})

			t.Run("07_OutboxStagedEvents", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/outbox/events?status=PENDING&limit=100", nil)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var list outboxDTO.ListOutboxEventsResponse
				require.NoError(t, json.Unmarshal(body, &list))
				assert.NotEmpty(t, list.Data)
				for i := 1; i < len(list.Data); i++ {
					assert.False(t, list.Data[i].CreatedAt.Before(list.Data[i-1].CreatedAt))
				}
			})

			t.Run("08_ListOrdersBySeller", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/orders?seller_id="+sellerID.String(), nil)
				require.Equal(t, http.StatusOK, resp.StatusCode)

				var list orderDTO.ListOrdersResponse
				require.NoError(t, json.Unmarshal(body, &list))
				require.Len(t, list.Data, 1)
				assert.Equal(t, order.ID, list.Data[0].ID)
			})
		})
	}
}

func TestIntegration_Webhook_Subscriptions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			ownerID := uuid.Must(uuid.NewV7()).String()
			var sub webhookDTO.SubscriptionResponse

			t.Run("01_Create", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/webhooks/subscriptions",
					webhookDTO.CreateSubscriptionRequest{
						OwnerID:     ownerID,
						Name:        "erp",
						EndpointURL: "https://erp.example.com/hooks",
						EventTypes:  []string{"order.created"},
					})
				require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
				require.NoError(t, json.Unmarshal(body, &sub))
				assert.NotEmpty(t, sub.Secret)
				assert.True(t, sub.Active)
			})

			t.Run("02_GetHidesSecret", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/webhooks/subscriptions/"+sub.ID, nil)
				require.Equal(t, http.StatusOK, resp.StatusCode)

				var got webhookDTO.SubscriptionResponse
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Empty(t, got.Secret)
				assert.Equal(t, []string{"order.created"}, got.EventTypes)
			})

			t.Run("03_RotateSecret", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost,
					"/v1/webhooks/subscriptions/"+sub.ID+"/rotate-secret", nil)
				require.Equal(t, http.StatusOK, resp.StatusCode)

				var rotated webhookDTO.SubscriptionResponse
				require.NoError(t, json.Unmarshal(body, &rotated))
				assert.NotEmpty(t, rotated.Secret)
				assert.NotEqual(t, sub.Secret, rotated.Secret)
			})

			t.Run("04_DeactivateAndReactivate", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost,
					"/v1/webhooks/subscriptions/"+sub.ID+"/deactivate", nil)
				require.Equal(t, http.StatusOK, resp.StatusCode)
				var got webhookDTO.SubscriptionResponse
				require.NoError(t, json.Unmarshal(body, &got))
				assert.False(t, got.Active)

				resp, body = ctx.makeRequest(t, http.MethodPost,
					"/v1/webhooks/subscriptions/"+sub.ID+"/reactivate", nil)
				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.NoError(t, json.Unmarshal(body, &got))
				assert.True(t, got.Active)
				assert.Zero(t, got.FailureCount)
			})

			t.Run("05_ListByOwner", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/webhooks/subscriptions?owner_id="+ownerID, nil)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var list webhookDTO.ListSubscriptionsResponse
				require.NoError(t, json.Unmarshal(body, &list))
				assert.Len(t, list.Data, 1)
			})
		})
	}
}
