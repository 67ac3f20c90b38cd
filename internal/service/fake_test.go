package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/pricing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tokenFor(userID, role string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return token
}

func sessionFor(t *testing.T, userID, role string) *gateway.Session {
	t.Helper()
	s := gateway.NewSession()
	require.NoError(t, s.SignIn(tokenFor(userID, role)))
	return s
}

func referenceCart() *models.Cart {
	return &models.Cart{
		ID: "cart-1",
		Items: []models.CartItem{
			{Product: models.ProductRef{ID: "p1", Title: models.LocalizedText{"en": "Phone"}}, Quantity: 2, UnitPrice: dec("110.99")},
			{Product: models.ProductRef{ID: "p2", Title: models.LocalizedText{"en": "Case"}}, Quantity: 1, UnitPrice: dec("159.99")},
		},
	}
}

var errServer = &gateway.APIError{Method: "POST", Route: "/test", StatusCode: 500, Message: "internal error"}

// fakeAPI is an in-memory storefront API that counts every call.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	cart     *models.Cart
	products map[string]*models.Product
	orders   []models.Order
	reviews  []models.Review
	user     *models.User
	rates    *pricing.Rates

	createOrderErr error
	clearCartErr   error
	myOrdersErr    error
	getCartErr     error
	profileErr     error

	// createOrderEntered is closed on the first CreateOrder call, which then
	// blocks until createOrderGate is closed.
	createOrderEntered chan struct{}
	createOrderGate    chan struct{}
	enterOnce          sync.Once

	lastOrderData *models.OrderData
	lastKey       string
	updatedUser   *models.User
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:    make(map[string]int),
		cart:     referenceCart(),
		products: make(map[string]*models.Product),
	}
}

func (f *fakeAPI) called(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) GetCart(ctx context.Context) (*models.Cart, error) {
	f.called("GetCart")
	if f.getCartErr != nil {
		return nil, f.getCartErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart.Clone(), nil
}

func (f *fakeAPI) AddToCart(ctx context.Context, productID string, quantity int) (*models.Cart, error) {
	f.called("AddToCart")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cart.Items = append(f.cart.Items, models.CartItem{Product: models.ProductRef{ID: productID}, Quantity: quantity})
	return f.cart.Clone(), nil
}

func (f *fakeAPI) UpdateCartItem(ctx context.Context, productID string, quantity int) (*models.Cart, error) {
	f.called("UpdateCartItem")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cart.Items {
		if f.cart.Items[i].Product.ID == productID {
			f.cart.Items[i].Quantity = quantity
		}
	}
	return f.cart.Clone(), nil
}

func (f *fakeAPI) RemoveCartItem(ctx context.Context, productID string) (*models.Cart, error) {
	f.called("RemoveCartItem")
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.cart.Items[:0:0]
	for _, item := range f.cart.Items {
		if item.Product.ID != productID {
			items = append(items, item)
		}
	}
	f.cart.Items = items
	return f.cart.Clone(), nil
}

func (f *fakeAPI) ClearCart(ctx context.Context) error {
	f.called("ClearCart")
	if f.clearCartErr != nil {
		return f.clearCartErr
	}
	f.mu.Lock()
	f.cart.Items = nil
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) ListProducts(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error) {
	f.called("ListProducts")
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &models.ProductPage{Page: 1, Pages: 1}
	for _, p := range f.products {
		page.Products = append(page.Products, *p)
	}
	page.Total = len(page.Products)
	return page, nil
}

func (f *fakeAPI) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	f.called("GetProduct")
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, &gateway.APIError{Method: "GET", Route: "/product/:id", StatusCode: 404, Message: "Product not found"}
	}
	out := *p
	return &out, nil
}

func (f *fakeAPI) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	f.called("CreateProduct")
	out := *p
	out.ID = "new-product"
	return &out, nil
}

func (f *fakeAPI) UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	f.called("UpdateProduct")
	out := *p
	return &out, nil
}

func (f *fakeAPI) DeleteProduct(ctx context.Context, id string) error {
	f.called("DeleteProduct")
	return nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, data *models.OrderData, idempotencyKey string) (*models.Order, error) {
	f.called("CreateOrder")
	if f.createOrderGate != nil {
		f.enterOnce.Do(func() { close(f.createOrderEntered) })
		<-f.createOrderGate
	}
	if f.createOrderErr != nil {
		return nil, f.createOrderErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOrderData = data
	f.lastKey = idempotencyKey
	order := models.Order{
		ID:             "order-1",
		Items:          data.Items,
		Subtotal:       data.Subtotal,
		GST:            data.GST,
		DeliveryFee:    data.DeliveryFee,
		TotalPrice:     data.TotalPrice,
		OrderStatus:    models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		IdempotencyKey: idempotencyKey,
	}
	f.orders = append([]models.Order{order}, f.orders...)
	return &order, nil
}

func (f *fakeAPI) MyOrders(ctx context.Context) ([]models.Order, error) {
	f.called("MyOrders")
	if f.myOrdersErr != nil {
		return nil, f.myOrdersErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Order(nil), f.orders...), nil
}

func (f *fakeAPI) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	f.called("GetOrder")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			out := o
			return &out, nil
		}
	}
	return nil, &gateway.APIError{Method: "GET", Route: "/order/:id", StatusCode: 404, Message: "Order not found"}
}

func (f *fakeAPI) AllOrders(ctx context.Context) ([]models.Order, error) {
	f.called("AllOrders")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Order(nil), f.orders...), nil
}

func (f *fakeAPI) UpdateOrderStatus(ctx context.Context, id string, update models.StatusUpdate) (*models.Order, error) {
	f.called("UpdateOrderStatus")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			if update.OrderStatus != "" {
				f.orders[i].OrderStatus = update.OrderStatus
			}
			if update.PaymentStatus != "" {
				f.orders[i].PaymentStatus = update.PaymentStatus
			}
			out := f.orders[i]
			return &out, nil
		}
	}
	return nil, errors.New("order not found")
}

func (f *fakeAPI) CancelOrder(ctx context.Context, id string) (*models.Order, error) {
	f.called("CancelOrder")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].OrderStatus = models.OrderStatusCancelled
			out := f.orders[i]
			return &out, nil
		}
	}
	return nil, errors.New("order not found")
}

func (f *fakeAPI) GetProfile(ctx context.Context) (*models.User, error) {
	f.called("GetProfile")
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return &models.User{ID: "u1", Name: "Asha", Email: "asha@example.com"}, nil
	}
	out := *f.user
	out.Addresses = append([]models.Address(nil), f.user.Addresses...)
	return &out, nil
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, u *models.User) (*models.User, error) {
	f.called("UpdateProfile")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *u
	out.Addresses = append([]models.Address(nil), u.Addresses...)
	f.updatedUser = &out
	f.user = &out
	return &out, nil
}

func (f *fakeAPI) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	f.called("ListReviews")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Review(nil), f.reviews...), nil
}

func (f *fakeAPI) CreateReview(ctx context.Context, r *models.Review) (*models.Review, error) {
	f.called("CreateReview")
	out := *r
	out.ID = "review-new"
	return &out, nil
}

func (f *fakeAPI) DeleteReview(ctx context.Context, id string) error {
	f.called("DeleteReview")
	return nil
}

func (f *fakeAPI) SendContactMessage(ctx context.Context, m *models.ContactMessage) error {
	f.called("SendContactMessage")
	return nil
}

func (f *fakeAPI) SignIn(ctx context.Context, creds gateway.Credentials) (*gateway.AuthResponse, error) {
	f.called("SignIn")
	return &gateway.AuthResponse{Token: tokenFor("u1", models.RoleUser), User: models.User{ID: "u1", Name: "Asha"}}, nil
}

func (f *fakeAPI) SignUp(ctx context.Context, req gateway.SignUpRequest) (*gateway.AuthResponse, error) {
	f.called("SignUp")
	return &gateway.AuthResponse{Token: tokenFor("u2", models.RoleUser), User: models.User{Name: req.Name}}, nil
}

func (f *fakeAPI) PricingConfig(ctx context.Context) (*pricing.Rates, error) {
	f.called("PricingConfig")
	if f.rates == nil {
		return nil, errServer
	}
	out := *f.rates
	return &out, nil
}

var _ API = (*fakeAPI)(nil)
