package dto

import (
	"fmt"

	"faktura/internal/model"
	"faktura/internal/money"
)

// Positions and discounts arrive from clients as loosely-typed JSON with
// string amounts in either German or machine notation. They are validated
// and converted into the typed model at this boundary — nothing past the
// DTO layer ever sees raw payload shapes.

// PositionRequest is one incoming line item.
type PositionRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=item heading description subtotal separator"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Unit        string `json:"unit"`
}

// DiscountRequest is the incoming aggregate discount.
type DiscountRequest struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
	Type    string `json:"type" validate:"omitempty,oneof=percent amount"`
	Base    string `json:"base" validate:"omitempty,oneof=net gross"`
	Value   string `json:"value"`
}

// ToLineItem parses the amounts and returns the typed line.
func (p PositionRequest) ToLineItem() (model.LineItem, error) {
	qty, err := money.Parse(p.Quantity)
	if err != nil {
		return model.LineItem{}, fmt.Errorf("Menge: %w", err)
	}
	price, err := money.Parse(p.UnitPrice)
	if err != nil {
		return model.LineItem{}, fmt.Errorf("Einzelpreis: %w", err)
	}
	return model.LineItem{
		Kind:        p.Kind,
		Description: p.Description,
		Quantity:    qty,
		UnitPrice:   price,
		Unit:        p.Unit,
	}, nil
}

// ToDiscount parses the discount value.
func (d DiscountRequest) ToDiscount() (model.Discount, error) {
	value, err := money.Parse(d.Value)
	if err != nil {
		return model.Discount{}, fmt.Errorf("Rabattwert: %w", err)
	}
	if value.IsNegative() {
		return model.Discount{}, fmt.Errorf("Rabattwert darf nicht negativ sein")
	}
	base := d.Base
	if base == "" {
		base = model.DiscountBaseNet
	}
	return model.Discount{
		Enabled: d.Enabled,
		Label:   d.Label,
		Type:    d.Type,
		Base:    base,
		Value:   value,
	}, nil
}

// ToLineItems converts a whole position list, reporting the first bad row.
func ToLineItems(positions []PositionRequest) ([]model.LineItem, error) {
	lines := make([]model.LineItem, 0, len(positions))
	for i, p := range positions {
		line, err := p.ToLineItem()
		if err != nil {
			return nil, fmt.Errorf("Position %d: %w", i+1, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ── Cancellation ──────────────────────────────────────────────────────────────

type CancelInvoiceRequest struct {
	Reason string `json:"reason"`
}

type CancelInvoiceResponse struct {
	OK                        bool   `json:"ok"`
	CancellationInvoiceNumber string `json:"cancellation_invoice_number"`
}

// ── Automation runner ─────────────────────────────────────────────────────────

type AutomationRunResponse struct {
	OK           bool `json:"ok"`
	SuccessCount int  `json:"success_count"`
	ErrorCount   int  `json:"error_count"`
}

// ── E-invoice ─────────────────────────────────────────────────────────────────

// EInvoiceRequest either names a stored invoice or carries a full payload.
type EInvoiceRequest struct {
	InvoiceNumber string `json:"invoice_number"`

	// Full-payload variant (used when no stored invoice exists yet).
	CustomerID string            `json:"customer_id"`
	Positions  []PositionRequest `json:"positions" validate:"omitempty,dive"`
	Meta       *EInvoiceMeta     `json:"meta"`
}

type EInvoiceMeta struct {
	Number   string          `json:"number"`
	Date     string          `json:"date"` // YYYY-MM-DD
	Currency string          `json:"currency"`
	TaxRate  string          `json:"tax_rate"`
	Discount DiscountRequest `json:"discount"`
}

type EInvoiceResponse struct {
	Filename    string `json:"filename"`
	StoragePath string `json:"storage_path"`
	DownloadURL string `json:"download_url"`
}
