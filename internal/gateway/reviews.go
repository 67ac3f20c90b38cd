package gateway

import (
	"context"
	"net/http"
	"net/url"

	"storefront/internal/models"
)

func (c *Client) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	var reviews []models.Review
	err := c.do(ctx, request{method: http.MethodGet, route: "/review/:productId", path: "/review/" + url.PathEscape(productID)}, &reviews)
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (c *Client) CreateReview(ctx context.Context, r *models.Review) (*models.Review, error) {
	var created models.Review
	if err := c.do(ctx, request{method: http.MethodPost, route: "/review", path: "/review", body: r}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteReview(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, route: "/review/:id", path: "/review/" + url.PathEscape(id)}, nil)
}

func (c *Client) SendContactMessage(ctx context.Context, m *models.ContactMessage) error {
	return c.do(ctx, request{method: http.MethodPost, route: "/contact", path: "/contact", body: m}, nil)
}
