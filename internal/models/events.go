package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced            = "ORDER_PLACED"
	EventTypeCheckoutPartialFailure = "CHECKOUT_PARTIAL_FAILURE"
	EventTypeCheckoutFailed         = "CHECKOUT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when checkout fully succeeds
type OrderPlacedEvent struct {
	BaseEvent
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	ItemCount      int             `json:"item_count"`
}

// CheckoutPartialFailureEvent published when the order exists but a follow-up step failed
type CheckoutPartialFailureEvent struct {
	BaseEvent
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	IdempotencyKey string `json:"idempotency_key"`
	Stage          string `json:"stage"`
	Reason         string `json:"reason"`
}

// CheckoutFailedEvent published when no order was created
type CheckoutFailedEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	IdempotencyKey string `json:"idempotency_key"`
	Stage          string `json:"stage"`
	Reason         string `json:"reason"`
}
