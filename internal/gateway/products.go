package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/models"
)

func productQuery(q models.ProductQuery) string {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) ListProducts(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error) {
	var page models.ProductPage
	err := c.do(ctx, request{method: http.MethodGet, route: "/product", path: "/product" + productQuery(q)}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := c.do(ctx, request{method: http.MethodGet, route: "/product/:id", path: "/product/" + url.PathEscape(id)}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	var created models.Product
	err := c.do(ctx, request{method: http.MethodPost, route: "/product", path: "/product", body: p}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	var updated models.Product
	err := c.do(ctx, request{method: http.MethodPut, route: "/product/:id", path: "/product/" + url.PathEscape(p.ID), body: p}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProduct asks the API to soft-delete a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, route: "/product/:id", path: "/product/" + url.PathEscape(id)}, nil)
}
