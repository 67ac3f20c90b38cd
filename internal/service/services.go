package service

import (
	"storefront/internal/cache"
	"storefront/internal/gateway"
	"storefront/internal/pricing"
)

// Services bundles every service of one storefront session
type Services struct {
	Session  *gateway.Session
	Caches   *cache.Store
	Rates    *RatesProvider
	Auth     *AuthService
	Cart     *CartService
	Catalog  *CatalogService
	Orders   *OrderService
	Profile  *ProfileService
	Reviews  *ReviewService
	Contact  *ContactService
	Checkout *Checkout
}

// New wires the services around one session and one set of caches
func New(api API, session *gateway.Session, defaults pricing.Rates, fromServer bool, cfg CheckoutConfig, opts ...CheckoutOption) *Services {
	caches := cache.NewStore()
	rates := NewRatesProvider(api, defaults, fromServer)

	cart := NewCartService(api, api, caches, rates)
	profile := NewProfileService(api, caches)
	orders := NewOrderService(api, session, caches)

	return &Services{
		Session:  session,
		Caches:   caches,
		Rates:    rates,
		Auth:     NewAuthService(api, session, caches, cart, profile, orders, rates),
		Cart:     cart,
		Catalog:  NewCatalogService(api, session, caches),
		Orders:   orders,
		Profile:  profile,
		Reviews:  NewReviewService(api, session, caches),
		Contact:  NewContactService(api),
		Checkout: NewCheckout(api, session, caches, rates, cfg, opts...),
	}
}
