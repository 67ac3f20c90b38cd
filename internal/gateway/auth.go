package gateway

import (
	"context"
	"net/http"

	"storefront/internal/models"
	"storefront/internal/pricing"
)

type Credentials struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// SignIn exchanges credentials for a token. The caller decides whether to
// install the token into the session.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, request{method: http.MethodPost, route: "/auth/signin", path: "/auth/signin", body: creds}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, request{method: http.MethodPost, route: "/auth/signup", path: "/auth/signup", body: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PricingConfig fetches the server-owned tax and delivery fee rates.
func (c *Client) PricingConfig(ctx context.Context) (*pricing.Rates, error) {
	var rates pricing.Rates
	if err := c.do(ctx, request{method: http.MethodGet, route: "/config/pricing", path: "/config/pricing"}, &rates); err != nil {
		return nil, err
	}
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &rates, nil
}
