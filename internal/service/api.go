package service

import (
	"context"

	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/pricing"
)

type CartAPI interface {
	GetCart(ctx context.Context) (*models.Cart, error)
	AddToCart(ctx context.Context, productID string, quantity int) (*models.Cart, error)
	UpdateCartItem(ctx context.Context, productID string, quantity int) (*models.Cart, error)
	RemoveCartItem(ctx context.Context, productID string) (*models.Cart, error)
	ClearCart(ctx context.Context) error
}

type CatalogAPI interface {
	ListProducts(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, data *models.OrderData, idempotencyKey string) (*models.Order, error)
	MyOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	AllOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, update models.StatusUpdate) (*models.Order, error)
	CancelOrder(ctx context.Context, id string) (*models.Order, error)
}

type ProfileAPI interface {
	GetProfile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, u *models.User) (*models.User, error)
}

type ReviewAPI interface {
	ListReviews(ctx context.Context, productID string) ([]models.Review, error)
	CreateReview(ctx context.Context, r *models.Review) (*models.Review, error)
	DeleteReview(ctx context.Context, id string) error
}

type ContactAPI interface {
	SendContactMessage(ctx context.Context, m *models.ContactMessage) error
}

type AuthAPI interface {
	SignIn(ctx context.Context, creds gateway.Credentials) (*gateway.AuthResponse, error)
	SignUp(ctx context.Context, req gateway.SignUpRequest) (*gateway.AuthResponse, error)
	PricingConfig(ctx context.Context) (*pricing.Rates, error)
}

// API is the full storefront REST surface the services depend on.
type API interface {
	CartAPI
	CatalogAPI
	OrderAPI
	ProfileAPI
	ReviewAPI
	ContactAPI
	AuthAPI
}

var _ API = (*gateway.Client)(nil)
