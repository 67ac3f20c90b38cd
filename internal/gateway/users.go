package gateway

import (
	"context"
	"net/http"

	"storefront/internal/models"
)

func (c *Client) GetProfile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, request{method: http.MethodGet, route: "/user/profile", path: "/user/profile"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile replaces the profile, including the whole address list.
func (c *Client) UpdateProfile(ctx context.Context, u *models.User) (*models.User, error) {
	var updated models.User
	if err := c.do(ctx, request{method: http.MethodPut, route: "/user/profile", path: "/user/profile", body: u}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
