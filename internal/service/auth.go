package service

import (
	"context"
	"fmt"

	"storefront/internal/cache"
	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AuthService signs users in and out and primes the caches of a session
type AuthService struct {
	api     AuthAPI
	session *gateway.Session
	caches  *cache.Store
	cart    *CartService
	profile *ProfileService
	orders  *OrderService
	rates   *RatesProvider
	logger  *zap.Logger
}

// NewAuthService creates the auth service. Every sign-out, including one
// caused by a rejected token, resets the session's caches.
func NewAuthService(
	api AuthAPI,
	session *gateway.Session,
	caches *cache.Store,
	cart *CartService,
	profile *ProfileService,
	orders *OrderService,
	rates *RatesProvider,
) *AuthService {
	s := &AuthService{
		api:     api,
		session: session,
		caches:  caches,
		cart:    cart,
		profile: profile,
		orders:  orders,
		rates:   rates,
		logger:  util.GetLogger(),
	}
	session.OnSignOut(func() {
		caches.Reset()
		s.logger.Info("Session ended, caches cleared")
	})
	return s
}

// SignIn exchanges credentials for a session token
func (s *AuthService) SignIn(ctx context.Context, creds gateway.Credentials) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.SignIn")
	defer span.End()

	if creds.Email == "" && creds.Phone == "" {
		return nil, invalid(models.ErrMissingContact)
	}
	resp, err := s.api.SignIn(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return s.start(resp)
}

// SignUp registers a new user and signs them in
func (s *AuthService) SignUp(ctx context.Context, req gateway.SignUpRequest) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.SignUp")
	defer span.End()

	if req.Name == "" {
		return nil, invalid(models.ErrMissingName)
	}
	if req.Email == "" && req.Phone == "" {
		return nil, invalid(models.ErrMissingContact)
	}
	resp, err := s.api.SignUp(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}
	return s.start(resp)
}

func (s *AuthService) start(resp *gateway.AuthResponse) (*models.User, error) {
	// Drop whatever the previous user left in the caches.
	s.session.SignOut()
	if err := s.session.SignIn(resp.Token); err != nil {
		return nil, err
	}
	user := resp.User
	if user.ID == "" {
		user.ID = s.session.UserID()
	}
	if user.Role == "" {
		user.Role = s.session.Role()
	}
	s.caches.User.Set(&user)

	s.logger.Info("Signed in", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return &user, nil
}

// SignOut ends the session
func (s *AuthService) SignOut() {
	s.session.SignOut()
}

// Bootstrap loads pricing rates, cart, profile and orders concurrently. The
// loads are independent: each cache settles on its own and one failure does
// not cancel the others. The first error is returned.
func (s *AuthService) Bootstrap(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "AuthService.Bootstrap")
	defer span.End()

	if !s.session.Authenticated() {
		return ErrNotSignedIn
	}

	var g errgroup.Group
	g.Go(func() error {
		s.rates.Load(ctx)
		return nil
	})
	g.Go(func() error {
		_, err := s.cart.Load(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.profile.Load(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.orders.LoadMine(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("bootstrap: %w", err)
	}
	return nil
}
