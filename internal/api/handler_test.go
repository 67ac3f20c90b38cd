package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// upstream is an in-memory storefront REST API.
type upstream struct {
	mu           sync.Mutex
	calls        map[string]int
	cart         models.Cart
	user         models.User
	orders       []models.Order
	clearCartErr bool
}

func newUpstream() *upstream {
	return &upstream{
		calls: make(map[string]int),
		cart: models.Cart{
			ID: "cart-1",
			Items: []models.CartItem{
				{Product: models.ProductRef{ID: "p1"}, Quantity: 2, UnitPrice: decimal.RequireFromString("110.99")},
				{Product: models.ProductRef{ID: "p2"}, Quantity: 1, UnitPrice: decimal.RequireFromString("159.99")},
			},
		},
		user: models.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Role: models.RoleUser},
	}
}

func (u *upstream) count(route string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[route]
}

func (u *upstream) router() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		u.mu.Lock()
		u.calls[c.Request.Method+" "+c.FullPath()]++
		u.mu.Unlock()
		c.Next()
	})

	r.POST("/auth/signin", func(c *gin.Context) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  "u1",
			"role": models.RoleUser,
			"exp":  time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("secret"))
		u.mu.Lock()
		defer u.mu.Unlock()
		c.JSON(http.StatusOK, gateway.AuthResponse{Token: token, User: u.user})
	})
	r.GET("/cart", func(c *gin.Context) {
		u.mu.Lock()
		defer u.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"data": u.cart})
	})
	r.DELETE("/cart", func(c *gin.Context) {
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.clearCartErr {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "cart service down"})
			return
		}
		u.cart.Items = nil
		c.Status(http.StatusNoContent)
	})
	r.GET("/user/profile", func(c *gin.Context) {
		u.mu.Lock()
		defer u.mu.Unlock()
		c.JSON(http.StatusOK, u.user)
	})
	r.PUT("/user/profile", func(c *gin.Context) {
		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		u.mu.Lock()
		defer u.mu.Unlock()
		u.user = user
		c.JSON(http.StatusOK, u.user)
	})
	r.POST("/order", func(c *gin.Context) {
		var data models.OrderData
		if err := c.ShouldBindJSON(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		u.mu.Lock()
		defer u.mu.Unlock()
		order := models.Order{
			ID:              "order-1",
			UserID:          "u1",
			Items:           data.Items,
			ShippingAddress: data.ShippingAddress,
			Subtotal:        data.Subtotal,
			GST:             data.GST,
			DeliveryFee:     data.DeliveryFee,
			TotalPrice:      data.TotalPrice,
			OrderStatus:     models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			IdempotencyKey:  c.GetHeader("Idempotency-Key"),
		}
		u.orders = append([]models.Order{order}, u.orders...)
		c.JSON(http.StatusCreated, order)
	})
	r.GET("/order/my-orders", func(c *gin.Context) {
		u.mu.Lock()
		defer u.mu.Unlock()
		c.JSON(http.StatusOK, u.orders)
	})
	r.GET("/order/:id", func(c *gin.Context) {
		u.mu.Lock()
		defer u.mu.Unlock()
		for _, o := range u.orders {
			if o.ID == c.Param("id") {
				c.JSON(http.StatusOK, o)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
	})
	r.GET("/product/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
	})
	return r
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type fakeJournal struct{ attempts []models.CheckoutAttempt }

func (j *fakeJournal) ListAttempts(ctx context.Context, userID string, limit int) ([]models.CheckoutAttempt, error) {
	return j.attempts, nil
}

func (j *fakeJournal) GetAttempt(ctx context.Context, key string) (*models.CheckoutAttempt, error) {
	for i := range j.attempts {
		if j.attempts[i].IdempotencyKey == key {
			return &j.attempts[i], nil
		}
	}
	return nil, nil
}

type fakeResolver map[string]string

func (r fakeResolver) OrderFor(ctx context.Context, key string) (string, error) {
	return r[key], nil
}

type testEnv struct {
	upstream *upstream
	handler  *Handler
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	up := newUpstream()
	srv := httptest.NewServer(up.router())
	t.Cleanup(srv.Close)

	session := gateway.NewSession()
	client := gateway.New(srv.URL, session, gateway.WithTimeout(5*time.Second))
	svc := service.New(client, session, pricing.DefaultRates(), false,
		service.CheckoutConfig{LockTTL: time.Minute, IdempotencyTTL: time.Hour})

	h := NewHandler(svc)
	router := gin.New()
	h.SetupRoutes(router)
	return &testEnv{upstream: up, handler: h, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/signin", gateway.Credentials{Email: "asha@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestReadinessCheck(t *testing.T) {
	env := newTestEnv(t)
	env.handler.WithDependency("redis", fakePinger{})

	w := env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	env.handler.WithDependency("postgres", fakePinger{err: errors.New("connection refused")})
	w = env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestPlaceOrderWithoutAddressMakesNoCalls(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	w := env.do(t, http.MethodPost, "/api/v1/checkout", CheckoutRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no shipping address selected")
	assert.Zero(t, env.upstream.count("POST /order"))
	assert.Zero(t, env.upstream.count("DELETE /cart"))
}

func TestPlaceOrderRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	addr := models.Address{Line1: "1 MG Road", City: "Pune", PostalCode: "411001"}

	w := env.do(t, http.MethodPost, "/api/v1/checkout", CheckoutRequest{Address: &addr})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, env.upstream.count("POST /order"))
}

func TestPlaceOrderWithSavedAddress(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	w := env.do(t, http.MethodPost, "/api/v1/bootstrap", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/profile/addresses",
		models.Address{FullName: "Asha", Line1: "1 MG Road", City: "Pune", PostalCode: "411001"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	index := 0
	w = env.do(t, http.MethodPost, "/api/v1/checkout", CheckoutRequest{AddressIndex: &index})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result service.PlaceOrderResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "order-1", result.Order.ID)
	assert.True(t, decimal.RequireFromString("500.7246").Equal(result.Totals.Total), result.Totals.Total.String())
	assert.Equal(t, models.StageDone, result.Stage)
	assert.Equal(t, "Pune", result.Order.ShippingAddress.City)

	assert.Equal(t, 1, env.upstream.count("POST /order"))
	assert.Equal(t, 1, env.upstream.count("DELETE /cart"))

	w = env.do(t, http.MethodGet, "/api/v1/cart/totals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var totals pricing.Totals
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &totals))
	assert.True(t, totals.Total.IsZero(), totals.Total.String())

	w = env.do(t, http.MethodGet, "/api/v1/checkout/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(models.StageDone))
}

func TestPlaceOrderClearFailureIsPartial(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	env.upstream.clearCartErr = true

	addr := models.Address{Line1: "1 MG Road", City: "Pune", PostalCode: "411001"}
	w := env.do(t, http.MethodPost, "/api/v1/checkout", CheckoutRequest{Address: &addr})

	assert.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "order-1")
	assert.Contains(t, w.Body.String(), "partial")
	assert.Equal(t, 1, env.upstream.count("POST /order"))
}

func TestAdminOnlyRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	w := env.do(t, http.MethodPost, "/api/v1/products", models.Product{Title: models.LocalizedText{"en": "Phone"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/admin/orders", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpstreamNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/products/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Product not found")
}

func TestInvalidRequests(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	w := env.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "p1", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/profile/addresses/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/contact", models.ContactMessage{Name: "Asha"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutAttempts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/checkout/attempts", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.signIn(t)
	w = env.do(t, http.MethodGet, "/api/v1/checkout/attempts", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.handler.WithJournal(&fakeJournal{attempts: []models.CheckoutAttempt{
		{IdempotencyKey: "key-1", UserID: "u1", Stage: models.StageDone, Outcome: models.AttemptSucceeded},
	}})
	w = env.do(t, http.MethodGet, "/api/v1/checkout/attempts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "key-1")
}

func TestCheckoutAttemptByKey(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/checkout/attempts/key-1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.signIn(t)
	w = env.do(t, http.MethodGet, "/api/v1/checkout/attempts/key-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.upstream.mu.Lock()
	env.upstream.orders = []models.Order{{ID: "order-2", UserID: "u1"}}
	env.upstream.mu.Unlock()
	env.handler.WithOrderResolver(fakeResolver{"key-2": "order-2", "key-9": "order-9"})

	w = env.do(t, http.MethodGet, "/api/v1/checkout/attempts/key-2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "order-2")

	w = env.do(t, http.MethodGet, "/api/v1/checkout/attempts/key-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "an order the API will not show stays unknown")

	env.handler.WithJournal(&fakeJournal{attempts: []models.CheckoutAttempt{
		{IdempotencyKey: "key-1", UserID: "u1", Stage: models.StageCartClearing, Outcome: models.AttemptPartial},
		{IdempotencyKey: "key-other", UserID: "u2", Stage: models.StageDone, Outcome: models.AttemptSucceeded},
	}})
	w = env.do(t, http.MethodGet, "/api/v1/checkout/attempts/key-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.AttemptPartial)

	w = env.do(t, http.MethodGet, "/api/v1/checkout/attempts/key-other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "another user's attempt must not be readable")
	assert.NotContains(t, w.Body.String(), "u2")
}
