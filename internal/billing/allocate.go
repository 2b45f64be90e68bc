// Package billing contains the pure computation core shared by invoice
// generation, cancellation and the e-invoice serializer: allocating one
// aggregate discount across line items and deriving document totals.
// Keeping this in one place is deliberate — three workflows used to
// re-derive these numbers independently and drifted apart.
package billing

import (
	"github.com/shopspring/decimal"

	"faktura/internal/model"
	"faktura/internal/money"
)

var oneHundred = decimal.NewFromInt(100)

// Allocate distributes the discount across the eligible lines and returns
// a new position list with adjusted unit prices. Quantities, descriptions
// and non-item lines are passed through untouched.
//
// Percent discounts apply a uniform factor. Amount discounts distribute
// the (net) discount proportionally to each eligible line's net
// contribution; the last eligible line absorbs the rounding remainder so
// that the sum of reductions equals the clamped discount to the cent.
func Allocate(lines []model.LineItem, d model.Discount, taxRate decimal.Decimal) []model.LineItem {
	out := make([]model.LineItem, len(lines))
	copy(out, lines)

	if !d.Active() {
		return out
	}

	switch d.Type {
	case model.DiscountPercent:
		factor := decimal.NewFromInt(1).Sub(d.Value.Div(oneHundred))
		for i := range out {
			if out[i].Countable() {
				out[i].UnitPrice = out[i].UnitPrice.Mul(factor)
			}
		}
		return out

	case model.DiscountAmount:
		allocateAmount(out, d, taxRate)
		return out
	}

	// Unknown discount type: treat as no-op rather than guessing.
	return out
}

func allocateAmount(lines []model.LineItem, d model.Discount, taxRate decimal.Decimal) {
	// Eligible lines carry a strictly positive net contribution.
	var eligible []int
	totalNet := decimal.Zero
	for i := range lines {
		if !lines[i].Countable() {
			continue
		}
		net := lines[i].Net()
		if net.IsPositive() {
			eligible = append(eligible, i)
			totalNet = totalNet.Add(net)
		}
	}
	if len(eligible) == 0 || !totalNet.IsPositive() {
		return
	}

	target := netDiscount(d, taxRate)
	// Clamp to [0, net subtotal of eligible lines] — a discount can never
	// push the eligible lines below zero.
	if target.IsNegative() {
		return
	}
	if target.GreaterThan(totalNet) {
		target = totalNet
	}
	target = money.Round(target)

	distributed := decimal.Zero
	for n, i := range eligible {
		var reduction decimal.Decimal
		if n == len(eligible)-1 {
			// Last line absorbs the remainder: no cent is lost or gained.
			reduction = target.Sub(distributed)
		} else {
			share := lines[i].Net().Div(totalNet)
			reduction = money.Round(target.Mul(share))
			distributed = distributed.Add(reduction)
		}
		newNet := lines[i].Net().Sub(reduction)
		lines[i].UnitPrice = newNet.Div(lines[i].Quantity)
	}
}

// netDiscount converts the discount value to a net amount: a gross-based
// amount is divided by (1 + taxRate/100) before distribution.
func netDiscount(d model.Discount, taxRate decimal.Decimal) decimal.Decimal {
	if d.Base == model.DiscountBaseGross {
		divisor := decimal.NewFromInt(1).Add(taxRate.Div(oneHundred))
		return d.Value.Div(divisor)
	}
	return d.Value
}
