package billing

import (
	"github.com/shopspring/decimal"

	"faktura/internal/model"
	"faktura/internal/money"
)

// Totals are the five derived monetary values of an invoice, each rounded
// to 2 decimals. Invariants (within a cent of rounding tolerance):
//
//	GrossTotal       == NetAfterDiscount + TaxAmount
//	NetAfterDiscount == NetSubtotal − DiscountAmount
type Totals struct {
	NetSubtotal      decimal.Decimal `json:"net_subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	NetAfterDiscount decimal.Decimal `json:"net_after_discount"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	GrossTotal       decimal.Decimal `json:"gross_total"`
}

// Compute derives totals from raw (pre-allocation) positions. The discount
// amount is computed from the Discount record itself, not by re-summing
// allocated lines, so the result is valid whether or not Allocate ran.
func Compute(lines []model.LineItem, d model.Discount, taxRate decimal.Decimal) Totals {
	net := decimal.Zero
	for _, l := range lines {
		if l.Countable() {
			net = net.Add(l.Net())
		}
	}
	return fromNetSubtotal(money.Round(net), d, taxRate)
}

// ComputePerLine rounds each line's net individually before summing. The
// e-invoice serializer uses this variant: every emitted line carries its
// own rounded net, and EN16931 (BR-CO-10) requires the document subtotal
// to equal their sum exactly. With fractional quantities the once-rounded
// sum of raw nets can drift a cent or two away from that.
func ComputePerLine(lines []model.LineItem, d model.Discount, taxRate decimal.Decimal) Totals {
	net := decimal.Zero
	for _, l := range lines {
		if l.Countable() {
			net = net.Add(money.Round(l.Net()))
		}
	}
	return fromNetSubtotal(net, d, taxRate)
}

func fromNetSubtotal(net decimal.Decimal, d model.Discount, taxRate decimal.Decimal) Totals {
	discount := decimal.Zero
	if d.Active() {
		switch d.Type {
		case model.DiscountPercent:
			discount = net.Mul(d.Value).Div(oneHundred)
		case model.DiscountAmount:
			discount = netDiscount(d, taxRate)
		}
		if discount.IsNegative() {
			discount = decimal.Zero
		}
		if discount.GreaterThan(net) {
			discount = net
		}
		discount = money.Round(discount)
	}

	netAfter := money.Round(net.Sub(discount))
	tax := money.Round(netAfter.Mul(taxRate).Div(oneHundred))
	gross := money.Round(netAfter.Add(tax))

	return Totals{
		NetSubtotal:      net,
		DiscountAmount:   discount,
		NetAfterDiscount: netAfter,
		TaxAmount:        tax,
		GrossTotal:       gross,
	}
}
