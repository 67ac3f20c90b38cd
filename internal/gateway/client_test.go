package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *Session) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	session := NewSession()
	return New(srv.URL, session), session
}

func TestSessionSignIn(t *testing.T) {
	s := NewSession()
	token := signedToken(t, jwt.MapClaims{
		"sub":  "user-1",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	require.NoError(t, s.SignIn(token))
	assert.Equal(t, "user-1", s.UserID())
	assert.True(t, s.IsAdmin())
	assert.True(t, s.Authenticated())

	signedOut := 0
	s.OnSignOut(func() { signedOut++ })
	s.SignOut()
	s.SignOut()
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Token())
	assert.Equal(t, 1, signedOut)
}

func TestSessionExpired(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SignIn(signedToken(t, jwt.MapClaims{
		"id":  "user-2",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})))
	assert.Equal(t, "user-2", s.UserID())
	assert.Equal(t, models.RoleUser, s.Role())
	assert.False(t, s.Authenticated())
}

func TestSessionRejectsGarbage(t *testing.T) {
	assert.Error(t, NewSession().SignIn("not-a-jwt"))
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	client, session := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"_id":"c1","items":[],"totalPrice":0}`))
	})

	_, err := client.GetCart(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)

	token := signedToken(t, jwt.MapClaims{"sub": "u1"})
	require.NoError(t, session.SignIn(token))
	_, err = client.GetCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+token, gotAuth)
}

func TestCreateOrderSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotBody models.OrderData
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/order", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"_id":"o1","orderStatus":"Pending","totalPrice":500.7246}}`))
	})

	order, err := client.CreateOrder(context.Background(), &models.OrderData{
		Items:      []models.OrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(10)}},
		TotalPrice: decimal.NewFromInt(10),
	}, "key-1")
	require.NoError(t, err)

	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "p1", gotBody.Items[0].ProductID)
	assert.Equal(t, "o1", order.ID)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("500.7246")))
}

func TestNon2xxReturnsAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Product not found"}`))
	})

	_, err := client.GetProduct(context.Background(), "missing")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Product not found", apiErr.Message)
	assert.Equal(t, "/product/:id", apiErr.Route)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnauthorizedSignsOut(t *testing.T) {
	client, session := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"jwt expired"}`))
	})
	require.NoError(t, session.SignIn(signedToken(t, jwt.MapClaims{"sub": "u1"})))

	_, err := client.MyOrders(context.Background())

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.False(t, session.Authenticated())
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(srv.URL, NewSession())
	err := client.ClearCart(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.StatusCode)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestListProductsQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "phones", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(`{"products":[{"_id":"p1","title":{"en":"Phone"},"price":"199.5"}],"total":1,"page":2,"pages":2}`))
	})

	page, err := client.ListProducts(context.Background(), models.ProductQuery{Page: 2, Category: "phones"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Phone", page.Products[0].Title.Get("en"))
	assert.True(t, page.Products[0].Price.Equal(decimal.RequireFromString("199.5")))
}

func TestPricingConfig(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"gstRate":0.12,"deliveryFee":40}`))
	})

	rates, err := client.PricingConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, rates.GSTRate.Equal(decimal.RequireFromString("0.12")))
	assert.True(t, rates.DeliveryFee.Equal(decimal.NewFromInt(40)))
}

func TestTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	c := New("http://example.invalid", NewSession(), WithHTTPClient(shared), WithTimeout(time.Second))

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, time.Second, c.http.Timeout)
	assert.NotSame(t, shared, c.http)
}
