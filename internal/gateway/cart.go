package gateway

import (
	"context"
	"net/http"
	"net/url"

	"storefront/internal/models"
)

type cartItemRequest struct {
	ProductID string `json:"productId,omitempty"`
	Quantity  int    `json:"quantity"`
}

func (c *Client) GetCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := c.do(ctx, request{method: http.MethodGet, route: "/cart", path: "/cart"}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) (*models.Cart, error) {
	var cart models.Cart
	err := c.do(ctx, request{
		method: http.MethodPost, route: "/cart", path: "/cart",
		body: cartItemRequest{ProductID: productID, Quantity: quantity},
	}, &cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) (*models.Cart, error) {
	var cart models.Cart
	err := c.do(ctx, request{
		method: http.MethodPut, route: "/cart/:productId", path: "/cart/" + url.PathEscape(productID),
		body: cartItemRequest{Quantity: quantity},
	}, &cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, productID string) (*models.Cart, error) {
	var cart models.Cart
	err := c.do(ctx, request{method: http.MethodDelete, route: "/cart/:productId", path: "/cart/" + url.PathEscape(productID)}, &cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodDelete, route: "/cart", path: "/cart"}, nil)
}
