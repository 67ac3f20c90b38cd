package service

import (
	"context"
	"fmt"

	"storefront/internal/cache"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ProfileService edits the signed-in user's details and address book.
// Addresses have no identity of their own and are edited by index.
type ProfileService struct {
	api    ProfileAPI
	caches *cache.Store
	logger *zap.Logger
}

func NewProfileService(api ProfileAPI, caches *cache.Store) *ProfileService {
	return &ProfileService{
		api:    api,
		caches: caches,
		logger: util.GetLogger(),
	}
}

// Load fetches the profile
func (s *ProfileService) Load(ctx context.Context) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.Load")
	defer span.End()

	return s.caches.User.Fetch(ctx, s.api.GetProfile)
}

func (s *ProfileService) current(ctx context.Context) (*models.User, error) {
	if u := s.caches.User.Value(); u != nil {
		return u, nil
	}
	return s.Load(ctx)
}

// UpdateDetails changes name and contact details. A name and at least one
// of email or phone are required.
func (s *ProfileService) UpdateDetails(ctx context.Context, name, email, phone string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.UpdateDetails")
	defer span.End()

	if name == "" {
		return nil, invalid(models.ErrMissingName)
	}
	if email == "" && phone == "" {
		return nil, invalid(models.ErrMissingContact)
	}

	user, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	user.Name, user.Email, user.Phone = name, email, phone

	updated, err := s.api.UpdateProfile(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	s.caches.User.Set(updated)
	return updated, nil
}

// AddAddress appends an address to the address book
func (s *ProfileService) AddAddress(ctx context.Context, addr models.Address) ([]models.Address, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.AddAddress")
	defer span.End()

	if err := addr.Validate(); err != nil {
		return nil, invalid(err)
	}
	user, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.saveAddresses(ctx, user, append(user.Addresses, addr))
}

// UpdateAddress replaces the address at index
func (s *ProfileService) UpdateAddress(ctx context.Context, index int, addr models.Address) ([]models.Address, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.UpdateAddress")
	defer span.End()

	if err := addr.Validate(); err != nil {
		return nil, invalid(err)
	}
	user, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(user.Addresses) {
		return nil, invalid(fmt.Errorf("%w: %d", ErrAddressIndex, index))
	}

	addrs := append([]models.Address(nil), user.Addresses...)
	addrs[index] = addr
	return s.saveAddresses(ctx, user, addrs)
}

// DeleteAddress removes the address at index
func (s *ProfileService) DeleteAddress(ctx context.Context, index int) ([]models.Address, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.DeleteAddress")
	defer span.End()

	user, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(user.Addresses) {
		return nil, invalid(fmt.Errorf("%w: %d", ErrAddressIndex, index))
	}

	addrs := make([]models.Address, 0, len(user.Addresses)-1)
	addrs = append(addrs, user.Addresses[:index]...)
	addrs = append(addrs, user.Addresses[index+1:]...)
	return s.saveAddresses(ctx, user, addrs)
}

// Address returns the address at index, or nil when there is none.
func (s *ProfileService) Address(index int) *models.Address {
	addrs := s.caches.User.Addresses()
	if index < 0 || index >= len(addrs) {
		return nil
	}
	addr := addrs[index]
	return &addr
}

func (s *ProfileService) saveAddresses(ctx context.Context, user *models.User, addrs []models.Address) ([]models.Address, error) {
	user.Addresses = addrs
	updated, err := s.api.UpdateProfile(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to save addresses: %w", err)
	}

	s.caches.User.Set(updated)
	if updated.Addresses == nil {
		s.caches.User.SetAddresses(addrs)
	}
	s.logger.Info("Address book updated", zap.String("user_id", updated.ID), zap.Int("addresses", len(addrs)))
	return s.caches.User.Addresses(), nil
}
