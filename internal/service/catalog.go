package service

import (
	"context"
	"fmt"

	"storefront/internal/cache"
	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CatalogService reads the catalog and applies admin product edits.
type CatalogService struct {
	api     CatalogAPI
	session *gateway.Session
	caches  *cache.Store
	logger  *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(api CatalogAPI, session *gateway.Session, caches *cache.Store) *CatalogService {
	return &CatalogService{
		api:     api,
		session: session,
		caches:  caches,
		logger:  util.GetLogger(),
	}
}

// List loads one page of the catalog
func (s *CatalogService) List(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.List")
	defer span.End()

	return s.caches.Products.LoadPage(ctx, func(ctx context.Context) (*models.ProductPage, error) {
		return s.api.ListProducts(ctx, q)
	})
}

// Get loads a single product into the selection
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Get")
	defer span.End()

	return s.caches.Products.Selected.Fetch(ctx, func(ctx context.Context) (*models.Product, error) {
		return s.api.GetProduct(ctx, id)
	})
}

func requireAdmin(session *gateway.Session) error {
	if !session.Authenticated() {
		return ErrNotSignedIn
	}
	if !session.IsAdmin() {
		return invalid(ErrForbidden)
	}
	return nil
}

// Create adds a product to the catalog
func (s *CatalogService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Create")
	defer span.End()

	if err := requireAdmin(s.session); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}

	created, err := s.api.CreateProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.caches.Products.ApplyCreate(*created)

	s.logger.Info("Product created", zap.String("product_id", created.ID))
	return created, nil
}

// Update replaces a product's editable fields
func (s *CatalogService) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Update")
	defer span.End()

	if err := requireAdmin(s.session); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}

	updated, err := s.api.UpdateProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.caches.Products.ApplyUpdate(*updated)

	s.logger.Info("Product updated", zap.String("product_id", updated.ID))
	return updated, nil
}

// Delete soft-deletes a product
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.Delete")
	defer span.End()

	if err := requireAdmin(s.session); err != nil {
		return err
	}
	if err := s.api.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.caches.Products.ApplyDelete(id)

	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}
