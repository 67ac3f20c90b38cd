package gateway

import (
	"context"
	"net/http"
	"net/url"

	"storefront/internal/models"
)

// CreateOrder submits an order. The idempotency key lets the API collapse
// duplicate submissions of the same checkout attempt.
func (c *Client) CreateOrder(ctx context.Context, data *models.OrderData, idempotencyKey string) (*models.Order, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}

	var order models.Order
	err := c.do(ctx, request{method: http.MethodPost, route: "/order", path: "/order", body: data, header: header}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, request{method: http.MethodGet, route: "/order/my-orders", path: "/order/my-orders"}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, request{method: http.MethodGet, route: "/order/:id", path: "/order/" + url.PathEscape(id)}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// AllOrders lists every order; admin only.
func (c *Client) AllOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, request{method: http.MethodGet, route: "/order", path: "/order"}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus changes status fields; admin only.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, update models.StatusUpdate) (*models.Order, error) {
	var order models.Order
	err := c.do(ctx, request{
		method: http.MethodPut, route: "/order/:id/status", path: "/order/" + url.PathEscape(id) + "/status", body: update,
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CancelOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, request{method: http.MethodPut, route: "/order/cancel/:id", path: "/order/cancel/" + url.PathEscape(id)}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
