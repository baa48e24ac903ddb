package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/styleshop/storefront/internal/models"
)

// ShippingMethod is a delivery option picked during checkout. The empty
// method means none was chosen and the threshold rule applies.
type ShippingMethod string

const (
	ShippingUnset    ShippingMethod = ""
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
	ShippingFree     ShippingMethod = "free"
)

// ShippingOption describes a selectable shipping method.
type ShippingOption struct {
	Method   ShippingMethod  `json:"id"`
	Name     string          `json:"name"`
	Delivery string          `json:"delivery"`
	Price    decimal.Decimal `json:"price"`
}

// ShippingOptions lists the checkout shipping methods in display order.
var ShippingOptions = []ShippingOption{
	{Method: ShippingStandard, Name: "Standard shipping", Delivery: "5-7 business days", Price: decimal.RequireFromString("4.99")},
	{Method: ShippingExpress, Name: "Express shipping", Delivery: "2-3 business days", Price: decimal.RequireFromString("9.99")},
	{Method: ShippingFree, Name: "Free shipping", Delivery: "7-10 business days", Price: decimal.Zero},
}

// ParseShippingMethod validates a shipping method name.
func ParseShippingMethod(s string) (ShippingMethod, error) {
	m := ShippingMethod(s)
	if _, ok := m.price(); !ok {
		return ShippingUnset, fmt.Errorf("unknown shipping method %q", s)
	}
	return m, nil
}

func (m ShippingMethod) price() (decimal.Decimal, bool) {
	for _, o := range ShippingOptions {
		if o.Method == m {
			return o.Price, true
		}
	}
	return decimal.Zero, false
}

// Pricing holds the configured constants behind cart totals.
type Pricing struct {
	FlatShippingFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPricing charges a 15.00 flat fee, ships free above 100.00 and
// applies 21% tax.
func DefaultPricing() Pricing {
	return Pricing{
		FlatShippingFee:       decimal.NewFromInt(15),
		FreeShippingThreshold: decimal.NewFromInt(100),
		TaxRate:               decimal.RequireFromString("0.21"),
	}
}

// Totals computes, in order, subtotal = Σ price × quantity, shipping, tax on
// the subtotal and the grand total. Nothing is rounded here; use
// models.Totals.Rounded for display. An empty cart totals zero.
func (p Pricing) Totals(lines []models.CartLine, method ShippingMethod) models.Totals {
	if len(lines) == 0 {
		return models.Totals{
			Subtotal: decimal.Zero,
			Shipping: decimal.Zero,
			Tax:      decimal.Zero,
			Total:    decimal.Zero,
		}
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}

	shipping := p.shipping(subtotal, method)
	tax := subtotal.Mul(p.TaxRate)

	return models.Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// RemainingForFreeShipping is how much more must be spent before the
// threshold rule waives shipping; zero once it is exceeded.
func (p Pricing) RemainingForFreeShipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FreeShippingThreshold.Sub(subtotal)
}

func (p Pricing) shipping(subtotal decimal.Decimal, method ShippingMethod) decimal.Decimal {
	if price, ok := method.price(); ok {
		return price
	}
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}
