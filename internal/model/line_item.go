package model

import (
	"github.com/shopspring/decimal"
)

// Line item kinds. Only KindItem contributes to totals; the remaining
// kinds are presentational and pass through every computation untouched.
const (
	KindItem        = "item"
	KindHeading     = "heading"
	KindDescription = "description"
	KindSubtotal    = "subtotal"
	KindSeparator   = "separator"
)

// LineItem is one row of an invoice's position list.
// Stored inside Invoice.Positions as JSON.
type LineItem struct {
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Unit        string          `json:"unit"`
}

// Countable reports whether the line contributes to totals.
func (l LineItem) Countable() bool {
	return l.Kind == KindItem && l.Quantity.IsPositive()
}

// Net returns quantity × unit price (unrounded).
func (l LineItem) Net() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Discount types and bases.
const (
	DiscountPercent = "percent"
	DiscountAmount  = "amount"

	DiscountBaseNet   = "net"
	DiscountBaseGross = "gross"
)

// Discount is one aggregate reduction applied across all item lines.
// Type=percent interprets Value as 0–100.
type Discount struct {
	Enabled bool            `json:"enabled"`
	Label   string          `json:"label"`
	Type    string          `json:"type"` // percent | amount
	Base    string          `json:"base"` // net | gross
	Value   decimal.Decimal `json:"value"`
}

// Active reports whether the discount affects totals at all.
func (d Discount) Active() bool {
	return d.Enabled && d.Value.IsPositive()
}
