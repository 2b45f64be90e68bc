package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faktura/internal/model"
)

func item(qty, price string) model.LineItem {
	return model.LineItem{
		Kind:      model.KindItem,
		Quantity:  decimal.RequireFromString(qty),
		UnitPrice: decimal.RequireFromString(price),
		Unit:      "Stk.",
	}
}

func standardLines() []model.LineItem {
	return []model.LineItem{item("2", "100"), item("1", "50")}
}

var tax19 = decimal.NewFromInt(19)

// ── Totals ────────────────────────────────────────────────────────────────────

func TestComputeNoDiscount(t *testing.T) {
	totals := Compute(standardLines(), model.Discount{}, tax19)

	assert.Equal(t, "250.00", totals.NetSubtotal.StringFixed(2))
	assert.Equal(t, "0.00", totals.DiscountAmount.StringFixed(2))
	assert.Equal(t, "250.00", totals.NetAfterDiscount.StringFixed(2))
	assert.Equal(t, "47.50", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "297.50", totals.GrossTotal.StringFixed(2))
}

func TestComputePercentDiscountNetBase(t *testing.T) {
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountPercent,
		Base:    model.DiscountBaseNet,
		Value:   decimal.NewFromInt(10),
	}
	totals := Compute(standardLines(), d, tax19)

	assert.Equal(t, "25.00", totals.DiscountAmount.StringFixed(2))
	assert.Equal(t, "225.00", totals.NetAfterDiscount.StringFixed(2))
	assert.Equal(t, "42.75", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "267.75", totals.GrossTotal.StringFixed(2))
}

func TestComputeGrossBaseAmount(t *testing.T) {
	// 119 gross at 19% is exactly 100 net.
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountAmount,
		Base:    model.DiscountBaseGross,
		Value:   decimal.NewFromInt(119),
	}
	totals := Compute(standardLines(), d, tax19)

	assert.Equal(t, "100.00", totals.DiscountAmount.StringFixed(2))
	assert.Equal(t, "150.00", totals.NetAfterDiscount.StringFixed(2))
}

func TestComputeAmountClampedToSubtotal(t *testing.T) {
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountAmount,
		Base:    model.DiscountBaseNet,
		Value:   decimal.NewFromInt(9999),
	}
	totals := Compute(standardLines(), d, tax19)

	assert.Equal(t, "250.00", totals.DiscountAmount.StringFixed(2))
	assert.True(t, totals.NetAfterDiscount.IsZero())
	assert.True(t, totals.GrossTotal.IsZero())
}

func TestComputeInvariants(t *testing.T) {
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountAmount,
		Base:    model.DiscountBaseNet,
		Value:   decimal.RequireFromString("33.37"),
	}
	lines := []model.LineItem{item("3", "19.99"), item("7", "0.07"), item("1", "120.50")}
	totals := Compute(lines, d, decimal.NewFromInt(7))

	tolerance := decimal.RequireFromString("0.01")
	assert.True(t, totals.GrossTotal.Sub(totals.NetAfterDiscount.Add(totals.TaxAmount)).Abs().LessThanOrEqual(tolerance))
	assert.True(t, totals.NetAfterDiscount.Sub(totals.NetSubtotal.Sub(totals.DiscountAmount)).Abs().LessThanOrEqual(tolerance))
}

func TestComputePerLineRoundsEachNet(t *testing.T) {
	// 1.5 × 33.33 = 49.995 per line; each rounds to 50.00, so the per-line
	// subtotal is 200.00 while the once-rounded raw sum would be 199.98.
	lines := []model.LineItem{
		item("1.5", "33.33"), item("1.5", "33.33"),
		item("1.5", "33.33"), item("1.5", "33.33"),
	}

	perLine := ComputePerLine(lines, model.Discount{}, tax19)
	assert.Equal(t, "200.00", perLine.NetSubtotal.StringFixed(2))
	assert.Equal(t, "200.00", perLine.NetAfterDiscount.StringFixed(2))
	assert.Equal(t, "38.00", perLine.TaxAmount.StringFixed(2))
	assert.Equal(t, "238.00", perLine.GrossTotal.StringFixed(2))

	raw := Compute(lines, model.Discount{}, tax19)
	assert.Equal(t, "199.98", raw.NetSubtotal.StringFixed(2))
}

func TestComputePerLineMatchesComputeOnWholeCents(t *testing.T) {
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountPercent,
		Base:    model.DiscountBaseNet,
		Value:   decimal.NewFromInt(10),
	}
	a := Compute(standardLines(), d, tax19)
	b := ComputePerLine(standardLines(), d, tax19)

	assert.True(t, a.NetSubtotal.Equal(b.NetSubtotal))
	assert.True(t, a.GrossTotal.Equal(b.GrossTotal))
}

func TestComputeIgnoresPresentationalLines(t *testing.T) {
	lines := []model.LineItem{
		{Kind: model.KindHeading, Description: "Leistungen"},
		item("2", "100"),
		{Kind: model.KindSeparator},
		item("1", "50"),
		{Kind: model.KindSubtotal},
	}
	totals := Compute(lines, model.Discount{}, tax19)
	assert.Equal(t, "250.00", totals.NetSubtotal.StringFixed(2))
}

// ── Allocation ────────────────────────────────────────────────────────────────

func TestAllocateDisabledPassesThrough(t *testing.T) {
	lines := standardLines()
	out := Allocate(lines, model.Discount{Enabled: false, Value: decimal.NewFromInt(10)}, tax19)
	require.Len(t, out, 2)
	assert.True(t, out[0].UnitPrice.Equal(lines[0].UnitPrice))
	assert.True(t, out[1].UnitPrice.Equal(lines[1].UnitPrice))
}

func TestAllocatePercent(t *testing.T) {
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountPercent,
		Base:    model.DiscountBaseNet,
		Value:   decimal.NewFromInt(10),
	}
	out := Allocate(standardLines(), d, tax19)

	assert.Equal(t, "90.00", out[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "45.00", out[1].UnitPrice.StringFixed(2))
}

func TestAllocateAmountProportional(t *testing.T) {
	// Line 1 net 200 (share 0.8) absorbs 24.00, line 2 net 50 absorbs 6.00.
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountAmount,
		Base:    model.DiscountBaseNet,
		Value:   decimal.NewFromInt(30),
	}
	out := Allocate(standardLines(), d, tax19)

	assert.Equal(t, "176.00", out[0].Net().StringFixed(2))
	assert.Equal(t, "44.00", out[1].Net().StringFixed(2))

	sum := out[0].Net().Add(out[1].Net())
	assert.Equal(t, "220.00", sum.StringFixed(2))

	totals := Compute(standardLines(), d, tax19)
	assert.True(t, sum.Round(2).Equal(totals.NetSubtotal.Sub(totals.DiscountAmount)))
}

func TestAllocateAmountRemainderOnLastLine(t *testing.T) {
	// 10.00 over three equal lines: 3.33 + 3.33 + 3.34.
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountAmount,
		Base:    model.DiscountBaseNet,
		Value:   decimal.NewFromInt(10),
	}
	lines := []model.LineItem{item("1", "100"), item("1", "100"), item("1", "100")}
	out := Allocate(lines, d, tax19)

	assert.Equal(t, "96.67", out[0].Net().StringFixed(2))
	assert.Equal(t, "96.67", out[1].Net().StringFixed(2))
	assert.Equal(t, "96.66", out[2].Net().StringFixed(2))

	sum := out[0].Net().Add(out[1].Net()).Add(out[2].Net())
	assert.Equal(t, "290.00", sum.StringFixed(2))
}

func TestAllocateSkipsNonPositiveLines(t *testing.T) {
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountAmount,
		Base:    model.DiscountBaseNet,
		Value:   decimal.NewFromInt(20),
	}
	lines := []model.LineItem{
		item("1", "100"),
		item("1", "-30"), // credit line: not eligible, untouched
		{Kind: model.KindDescription, Description: "Hinweis"},
	}
	out := Allocate(lines, d, tax19)

	assert.Equal(t, "80.00", out[0].Net().StringFixed(2))
	assert.Equal(t, "-30.00", out[1].Net().StringFixed(2))
}

func TestAllocateGrossBaseConvertsToNet(t *testing.T) {
	d := model.Discount{
		Enabled: true,
		Type:    model.DiscountAmount,
		Base:    model.DiscountBaseGross,
		Value:   decimal.RequireFromString("59.50"), // 50.00 net at 19%
	}
	out := Allocate(standardLines(), d, tax19)

	sum := out[0].Net().Add(out[1].Net())
	assert.Equal(t, "200.00", sum.StringFixed(2))
}
