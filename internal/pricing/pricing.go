// Package pricing derives line totals, tax and grand totals from cart
// snapshots. Every function is pure: inputs are never mutated and the same
// input always yields the same output.
package pricing

import (
	"fmt"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// DefaultGSTRate is applied to the cart subtotal.
	DefaultGSTRate = decimal.RequireFromString("0.18")
	// DeliveryFee is a flat charge in the same unit as prices.
	DeliveryFee = decimal.NewFromInt(50)

	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Rates are the tax and fee parameters used by Summarize.
type Rates struct {
	GSTRate     decimal.Decimal `json:"gstRate"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
}

// DefaultRates returns the built-in client-side rates.
func DefaultRates() Rates {
	return Rates{GSTRate: DefaultGSTRate, DeliveryFee: DeliveryFee}
}

// ParseRates builds Rates from their textual configuration.
func ParseRates(gstRate, deliveryFee string) (Rates, error) {
	gst, err := decimal.NewFromString(gstRate)
	if err != nil {
		return Rates{}, fmt.Errorf("parse gst rate: %w", err)
	}
	fee, err := decimal.NewFromString(deliveryFee)
	if err != nil {
		return Rates{}, fmt.Errorf("parse delivery fee: %w", err)
	}
	r := Rates{GSTRate: gst, DeliveryFee: fee}
	if err := r.Validate(); err != nil {
		return Rates{}, err
	}
	return r, nil
}

func (r Rates) Validate() error {
	if r.GSTRate.IsNegative() || r.GSTRate.GreaterThan(one) {
		return fmt.Errorf("gst rate out of range: %s", r.GSTRate)
	}
	if r.DeliveryFee.IsNegative() {
		return fmt.Errorf("delivery fee must not be negative: %s", r.DeliveryFee)
	}
	return nil
}

// Totals is the money breakdown shown at checkout and stored on an order.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	GST         decimal.Decimal `json:"gst"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"totalPrice"`
}

// LineTotal is quantity times the snapshotted unit price.
func LineTotal(item models.CartItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// DiscountedPrice applies a percentage discount. The result is not rounded;
// use Display for presentation.
func DiscountedPrice(price, discountPercentage decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Sub(discountPercentage.Div(hundred)))
}

// CartSubtotal sums every line total of the cart.
func CartSubtotal(cart *models.Cart) decimal.Decimal {
	subtotal := decimal.Zero
	if cart == nil {
		return subtotal
	}
	for _, item := range cart.Items {
		subtotal = subtotal.Add(LineTotal(item))
	}
	return subtotal
}

// GST computes tax on a subtotal at the given rate.
func GST(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate)
}

// GrandTotal is subtotal + gst + deliveryFee.
func GrandTotal(subtotal, gst, deliveryFee decimal.Decimal) decimal.Decimal {
	return subtotal.Add(gst).Add(deliveryFee)
}

// Summarize computes the checkout totals for a cart. An empty cart costs nothing,
// the delivery fee only applies once there is something to deliver.
func Summarize(cart *models.Cart, rates Rates) Totals {
	if cart == nil || len(cart.Items) == 0 {
		return Totals{Subtotal: decimal.Zero, GST: decimal.Zero, DeliveryFee: decimal.Zero, Total: decimal.Zero}
	}
	subtotal := CartSubtotal(cart)
	gst := GST(subtotal, rates.GSTRate)
	return Totals{
		Subtotal:    subtotal,
		GST:         gst,
		DeliveryFee: rates.DeliveryFee,
		Total:       GrandTotal(subtotal, gst, rates.DeliveryFee),
	}
}

// Normalize returns a copy of cart whose line totals and cart total are
// recomputed from quantities and unit prices.
func Normalize(cart *models.Cart) *models.Cart {
	if cart == nil {
		return &models.Cart{Items: []models.CartItem{}, TotalPrice: decimal.Zero}
	}
	out := cart.Clone()
	if out.Items == nil {
		out.Items = []models.CartItem{}
	}
	for i := range out.Items {
		out.Items[i].TotalPrice = LineTotal(out.Items[i])
	}
	out.TotalPrice = CartSubtotal(out)
	return out
}

// Consistent reports whether an order's money fields add up within one
// minor unit.
func Consistent(o *models.Order) bool {
	sum := GrandTotal(o.Subtotal, o.GST, o.DeliveryFee)
	return sum.Sub(o.TotalPrice).Abs().LessThanOrEqual(decimal.New(1, -2))
}

// Display rounds to the currency's minor unit for presentation.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
