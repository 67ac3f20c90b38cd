package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusFailed   PaymentStatus = "Failed"
	PaymentStatusRefunded PaymentStatus = "Refunded"
)

var orderFlow = map[OrderStatus]OrderStatus{
	OrderStatusPending:    OrderStatusProcessing,
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransition allows one forward step along the fulfilment flow, or
// cancellation from any non-terminal state. Re-applying the current status is a no-op and allowed.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s == to {
		return true
	}
	if s.Terminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return orderFlow[s] == to
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case PaymentStatusPending:
		return to == PaymentStatusPaid || to == PaymentStatusFailed || to == PaymentStatusRefunded
	case PaymentStatusPaid:
		return to == PaymentStatusRefunded
	}
	return false
}

// OrderItem is a snapshot of a cart line taken when the order is created
type OrderItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is immutable once created except for its status fields
type Order struct {
	ID              string          `json:"_id"`
	UserID          string          `json:"user,omitempty"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress Address         `json:"shippingAddress"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	GST             decimal.Decimal `json:"gst"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	OrderStatus     OrderStatus     `json:"orderStatus"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	IdempotencyKey  string          `json:"idempotencyKey,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderData is the create-order payload built from the cart at checkout.
type OrderData struct {
	Items           []OrderItem     `json:"items"`
	ShippingAddress Address         `json:"shippingAddress"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	GST             decimal.Decimal `json:"gst"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	PaymentMethod   string          `json:"paymentMethod"`
}

// StatusUpdate is the admin payload for changing an order's status fields.
type StatusUpdate struct {
	OrderStatus   OrderStatus   `json:"orderStatus,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
}

// CheckoutStage is a step of the place order flow
type CheckoutStage string

// Checkout stages, in order. Failed is reachable from any of them.
const (
	StageIdle             CheckoutStage = "Idle"
	StageAddressSelected  CheckoutStage = "AddressSelected"
	StageOrderCreating    CheckoutStage = "OrderCreating"
	StageOrderCreated     CheckoutStage = "OrderCreated"
	StageCartClearing     CheckoutStage = "CartClearing"
	StageCartCleared      CheckoutStage = "CartCleared"
	StageOrdersRefreshing CheckoutStage = "OrdersRefreshing"
	StageDone             CheckoutStage = "Done"
	StageFailed           CheckoutStage = "Failed"
)

// Checkout attempt outcomes
const (
	AttemptPending   = "PENDING"
	AttemptSucceeded = "SUCCEEDED"
	AttemptPartial   = "PARTIAL"
	AttemptFailed    = "FAILED"
)

// CheckoutAttempt is the journal row of one place order call
type CheckoutAttempt struct {
	ID             int64           `db:"id" json:"id"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key"`
	UserID         string          `db:"user_id" json:"user_id"`
	Stage          CheckoutStage   `db:"stage" json:"stage"`
	Outcome        string          `db:"outcome" json:"outcome"`
	OrderID        sql.NullString  `db:"order_id" json:"-"`
	TotalPrice     decimal.Decimal `db:"total_price" json:"total_price"`
	Error          sql.NullString  `db:"error" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}
