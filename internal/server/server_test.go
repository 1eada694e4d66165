package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"snaptrade/internal/client"
	"snaptrade/internal/middleware"
	"snaptrade/internal/repository"
	"snaptrade/internal/service"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type stubGateway struct {
	mu sync.Mutex
	n  int
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) CreateOrder(ctx context.Context, in client.CreateOrderInput) (*client.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return &client.GatewayOrder{
		ID:          fmt.Sprintf("order_%d", g.n),
		AmountMinor: client.ToMinorUnits(in.Amount),
		Currency:    in.Currency,
	}, nil
}

func (g *stubGateway) CaptureOrder(ctx context.Context, gatewayOrderID string) error { return nil }

func (g *stubGateway) ParseWebhook(ctx context.Context, headers http.Header, body []byte) (*client.WebhookEvent, error) {
	if headers.Get("X-Test-Signature") != "ok" {
		return nil, client.ErrInvalidWebhookSignature
	}
	var in struct {
		ID      string `json:"id"`
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}
	return &client.WebhookEvent{ID: in.ID, Type: "payment.captured", Outcome: client.WebhookPaid, GatewayOrderID: in.OrderID}, nil
}

type stubStorage struct{}

func (stubStorage) Name() string { return "stub" }

func (stubStorage) UploadAuth(ctx context.Context) (*client.UploadAuth, error) {
	return &client.UploadAuth{Token: "tok", Expire: 1700000000, Signature: "abc"}, nil
}

func (stubStorage) DeleteFile(ctx context.Context, fileID string) error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, client.Migrate(db))

	log := zap.NewNop()
	policy := service.NewPolicy("admin")
	productRepo := repository.NewProductRepository(db)

	assets := service.NewAssetService(stubStorage{}, repository.NewAssetCleanupRepository(db), policy, log, service.AssetServiceOptions{})
	t.Cleanup(assets.Wait)

	products := service.NewProductService(productRepo, assets, policy, log)
	checkout := service.NewCheckoutService(
		db, &stubGateway{},
		productRepo,
		repository.NewOrderRepository(db),
		repository.NewWebhookEventRepository(db),
		policy, log,
		service.CheckoutOptions{Currency: "INR"},
	)

	return NewServer(products, checkout, assets, testSecret, log)
}

func token(t *testing.T, userID, role string) string {
	t.Helper()

	claims := middleware.SessionClaims{
		Email: userID + "@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func do(t *testing.T, s *Server, method, path, bearer, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

const sunsetBody = `{"name":"Sunset","description":"A sunset photo","variants":[{"type":"SQUARE","price":500,"imageUrl":"https://cdn.example/sq.jpg","fileId":"f1"}]}`

func createSunset(t *testing.T, s *Server) string {
	t.Helper()

	code, env := do(t, s, http.MethodPost, "/api/products/list", token(t, "u1", "admin"), sunsetBody)
	require.Equal(t, http.StatusCreated, code, env.Message)

	var product struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &product))
	return product.ID
}

func TestCreateProductEndpoint(t *testing.T) {
	s := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/products/list", token(t, "u1", "admin"), sunsetBody)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusCreated, env.StatusCode)

	var product map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, "u1", product["owner"])
	variants := product["variants"].([]any)
	require.Len(t, variants, 1)
	first := variants[0].(map[string]any)
	assert.Equal(t, "SQUARE", first["type"])
	assert.Equal(t, float64(500), first["price"])
	assert.Equal(t, "Square (1:1)", first["label"])
}

func TestCreateProductEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	code, env := do(t, s, http.MethodPost, "/api/products/list", "", sunsetBody)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = do(t, s, http.MethodPost, "/api/products/list", "not-a-jwt", sunsetBody)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = do(t, s, http.MethodPost, "/api/products/list", token(t, "u2", "user"), sunsetBody)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Equal(t, "only admins can list products", env.Message)

	code, env = do(t, s, http.MethodPost, "/api/products/list", token(t, "u1", "admin"),
		`{"name":"Sunset","description":"A sunset photo","variants":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "at least one variant is required", env.Message)

	code, _ = do(t, s, http.MethodPost, "/api/products/list", token(t, "u1", "admin"), `{"name":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetAndDeleteProductEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := createSunset(t, s)

	code, env := do(t, s, http.MethodGet, "/api/products/"+id, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = do(t, s, http.MethodDelete, "/api/products/"+id, token(t, "u3", "admin"), "")
	assert.Equal(t, http.StatusForbidden, code)

	code, env = do(t, s, http.MethodDelete, "/api/products/"+id, token(t, "u1", "admin"), "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = do(t, s, http.MethodGet, "/api/products/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestUpdateProductEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := createSunset(t, s)

	code, env := do(t, s, http.MethodPatch, "/api/products/"+id, token(t, "u1", "admin"), `{"name":"Dusk","version":1}`)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = do(t, s, http.MethodPatch, "/api/products/"+id, token(t, "u1", "admin"), `{"name":"Again","version":1}`)
	assert.Equal(t, http.StatusConflict, code)
}

func TestPlaceOrderEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := createSunset(t, s)

	body := fmt.Sprintf(`{"productId":%q,"variant":{"type":"SQUARE","price":500,"imageUrl":"https://cdn.example/sq.jpg"}}`, id)
	code, env := do(t, s, http.MethodPost, "/api/orders/place", token(t, "u2", "user"), body)
	require.Equal(t, http.StatusOK, code, env.Message)

	var res struct {
		OrderID   string `json:"orderId"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		DBOrderID string `json:"dbOrderId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "order_1", res.OrderID)
	assert.Equal(t, int64(50000), res.Amount)
	assert.Equal(t, "INR", res.Currency)
	assert.NotEmpty(t, res.DBOrderID)

	code, env = do(t, s, http.MethodGet, "/api/orders/"+res.DBOrderID, token(t, "u2", "user"), "")
	require.Equal(t, http.StatusOK, code)
	var order map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, float64(500), order["amount"])

	code, _ = do(t, s, http.MethodPost, "/api/orders/place", token(t, "u2", "user"),
		fmt.Sprintf(`{"productId":%q,"variant":"WIDE"}`, id))
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, s, http.MethodPost, "/api/orders/place", token(t, "u2", "user"), `{"variant":"SQUARE"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "productId failed on required", env.Message)

	code, _ = do(t, s, http.MethodPost, "/api/orders/place", "",
		fmt.Sprintf(`{"productId":%q,"variant":"SQUARE"}`, id))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPaymentWebhookEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := createSunset(t, s)

	_, env := do(t, s, http.MethodPost, "/api/orders/place", token(t, "u2", "user"),
		fmt.Sprintf(`{"productId":%q,"variant":"SQUARE"}`, id))
	var placed struct {
		OrderID   string `json:"orderId"`
		DBOrderID string `json:"dbOrderId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &placed))

	body := fmt.Sprintf(`{"id":"evt_1","orderId":%q}`, placed.OrderID)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", strings.NewReader(body))
	req.Header.Set("X-Test-Signature", "ok")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = do(t, s, http.MethodGet, "/api/orders/"+placed.DBOrderID, token(t, "u2", "user"), "")
	var order map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "paid", order["status"])
}

func TestUploadAuthEndpointIsRaw(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/imagekit-auth", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "u2", "user"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "abc", raw["signature"])
	assert.Equal(t, "tok", raw["token"])
	assert.Equal(t, float64(1700000000), raw["expire"])
	assert.NotContains(t, raw, "success")
}

func TestListProductsAndCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)
	createSunset(t, s)
	createSunset(t, s)

	code, env := do(t, s, http.MethodGet, "/api/products?limit=1", "", "")
	require.Equal(t, http.StatusOK, code, env.Message)
	var page struct {
		Items      []map[string]any `json:"items"`
		NextCursor string           `json:"nextCursor"`
		HasMore    bool             `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Items, 1)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)

	code, _ = do(t, s, http.MethodGet, "/api/products?limit=500", "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, s, http.MethodGet, "/api/variant-kinds", "", "")
	require.Equal(t, http.StatusOK, code)
	var kinds []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &kinds))
	require.Len(t, kinds, 3)
	assert.Equal(t, "SQUARE", kinds[0]["type"])
}

func TestUnknownRouteKeepsEnvelope(t *testing.T) {
	s := newTestServer(t)

	code, env := do(t, s, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
}
