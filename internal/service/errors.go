package service

import (
	"errors"
	"fmt"

	"storefront/internal/gateway"
	"storefront/internal/models"
)

// Kind classifies a failure for the caller.
type Kind int

const (
	KindNone Kind = iota
	KindNetwork
	KindValidation
	KindAuth
	KindPartial
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindPartial:
		return "partial"
	}
	return "none"
}

var (
	ErrNoAddressSelected   = errors.New("no shipping address selected")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNotSignedIn         = errors.New("not signed in")
	ErrForbidden           = errors.New("admin role required")
	ErrNotReviewOwner      = errors.New("review belongs to another user")
	ErrReviewNotFound      = errors.New("review not found")
	ErrAddressIndex        = errors.New("address index out of range")
	ErrProductUnavailable  = errors.New("product is unavailable")
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrCheckoutInProgress  = errors.New("a checkout is already in progress")
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrCartClearFailed     = errors.New("order placed but the cart could not be cleared")
)

// ValidationError marks a failure detected before any network call.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error) error {
	return &ValidationError{Err: err}
}

// PartialFailure reports a checkout whose order exists but whose follow-up
// step failed. Order is the created order.
type PartialFailure struct {
	Stage models.CheckoutStage
	Order *models.Order
	Err   error
}

func (e *PartialFailure) Error() string {
	orderID := ""
	if e.Order != nil {
		orderID = e.Order.ID
	}
	return fmt.Sprintf("checkout partially failed at %s (order %s): %v", e.Stage, orderID, e.Err)
}

func (e *PartialFailure) Unwrap() []error {
	return []error{ErrCartClearFailed, e.Err}
}

// KindOf classifies err. Anything not recognised is a network failure.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var partial *PartialFailure
	if errors.As(err, &partial) {
		return KindPartial
	}
	if errors.Is(err, gateway.ErrUnauthorized) || errors.Is(err, ErrNotSignedIn) {
		return KindAuth
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}
	return KindNetwork
}
