package service

import (
	"context"
	"fmt"

	"storefront/internal/cache"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CartService applies cart mutations and keeps the cart cache in step.
type CartService struct {
	api     CartAPI
	catalog CatalogAPI
	caches  *cache.Store
	rates   *RatesProvider
	logger  *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(api CartAPI, catalog CatalogAPI, caches *cache.Store, rates *RatesProvider) *CartService {
	return &CartService{
		api:     api,
		catalog: catalog,
		caches:  caches,
		rates:   rates,
		logger:  util.GetLogger(),
	}
}

// Load fetches the signed-in user's cart
func (s *CartService) Load(ctx context.Context) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Load")
	defer span.End()

	return s.caches.Cart.Load(ctx, s.api.GetCart)
}

// Add puts qty units of a product in the cart. The line keeps the
// discounted price the product had at this moment.
func (s *CartService) Add(ctx context.Context, productID string, qty int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Add", attribute.String("product.id", productID))
	defer span.End()

	if qty < 1 {
		return nil, invalid(models.ErrInvalidQuantity)
	}

	product, ok := s.caches.Products.Lookup(productID)
	if !ok {
		var err error
		product, err = s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to load product: %w", err)
		}
	}

	inCart := 0
	for _, item := range s.caches.Cart.Cart().Items {
		if item.Product.ID == productID {
			inCart = item.Quantity
		}
	}
	if !product.InStock(inCart + qty) {
		return nil, invalid(fmt.Errorf("%w: %s", ErrProductUnavailable, productID))
	}

	cart, err := s.api.AddToCart(ctx, productID, qty)
	if err != nil {
		s.caches.Cart.Fail(err)
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}

	price := pricing.DiscountedPrice(product.Price, product.DiscountPercentage)
	for i := range cart.Items {
		if cart.Items[i].Product.ID == productID && cart.Items[i].UnitPrice.IsZero() {
			cart.Items[i].UnitPrice = price
		}
	}

	s.caches.Cart.Set(cart)
	s.logger.Info("Added to cart", zap.String("product_id", productID), zap.Int("quantity", qty))
	return s.caches.Cart.Cart(), nil
}

// UpdateQuantity sets the quantity of an existing line
func (s *CartService) UpdateQuantity(ctx context.Context, productID string, qty int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity", attribute.String("product.id", productID))
	defer span.End()

	if qty < 1 {
		return nil, invalid(models.ErrInvalidQuantity)
	}

	cart, err := s.api.UpdateCartItem(ctx, productID, qty)
	if err != nil {
		s.caches.Cart.Fail(err)
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	s.caches.Cart.Set(cart)
	return s.caches.Cart.Cart(), nil
}

// Remove drops a line from the cart
func (s *CartService) Remove(ctx context.Context, productID string) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Remove", attribute.String("product.id", productID))
	defer span.End()

	cart, err := s.api.RemoveCartItem(ctx, productID)
	if err != nil {
		s.caches.Cart.Fail(err)
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	s.caches.Cart.Set(cart)
	return s.caches.Cart.Cart(), nil
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	if err := s.api.ClearCart(ctx); err != nil {
		s.caches.Cart.Fail(err)
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	s.caches.Cart.Clear()
	return nil
}

// Totals derives the checkout breakdown from the cached cart
func (s *CartService) Totals() pricing.Totals {
	return pricing.Summarize(s.caches.Cart.Cart(), s.rates.Rates())
}
