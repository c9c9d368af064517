// Package pricing computes order totals: item subtotal, flat shipping and GST.
package pricing

import (
	"github.com/shopspring/decimal"
)

const (
	// ShippingFee is charged once per order regardless of contents.
	ShippingFee int64 = 100
	// GSTRate is applied to subtotal plus shipping.
	GSTRate = "0.18"
)

// Line is anything with a unit price and a quantity.
type Line interface {
	UnitPrice() int64
	Units() int
}

// Item is the plain Line used by callers that have no richer type at hand.
type Item struct {
	Price    int64
	Quantity int
}

func (i Item) UnitPrice() int64 { return i.Price }
func (i Item) Units() int       { return i.Quantity }

type Quote struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

type Calculator struct {
	shipping int64
	rate     decimal.Decimal
}

// New returns the storefront calculator: 100 shipping, 18% GST.
func New() *Calculator {
	return &Calculator{
		shipping: ShippingFee,
		rate:     decimal.RequireFromString(GSTRate),
	}
}

// NewWith builds a calculator with a custom fee and rate.
func NewWith(shipping int64, rate decimal.Decimal) *Calculator {
	return &Calculator{shipping: shipping, rate: rate}
}

func (c *Calculator) Subtotal(lines ...Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.UnitPrice() * int64(l.Units())
	}
	return sum
}

func (c *Calculator) ShippingFee() int64 {
	return c.shipping
}

// Tax rounds half-up to the nearest whole currency unit.
func (c *Calculator) Tax(subtotal, shipping int64) int64 {
	base := decimal.NewFromInt(subtotal + shipping)
	// Round is half away from zero, which is half-up for non-negative amounts.
	return base.Mul(c.rate).Round(0).IntPart()
}

func (c *Calculator) Total(subtotal, shipping, tax int64) int64 {
	return subtotal + shipping + tax
}

func (c *Calculator) Quote(lines ...Line) Quote {
	subtotal := c.Subtotal(lines...)
	shipping := c.ShippingFee()
	tax := c.Tax(subtotal, shipping)
	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    c.Total(subtotal, shipping, tax),
	}
}

// Lines adapts a typed slice for Subtotal and Quote.
func Lines[T Line](items []T) []Line {
	out := make([]Line, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
