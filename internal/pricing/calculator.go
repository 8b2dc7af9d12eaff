// Package pricing implements line item and cart total arithmetic. It is a
// pure calculation library: no state, no storage, no clock.
package pricing

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Line holds the computed components for a single priced line. Values are
// kept at full precision; call Rounded before presenting or persisting them.
type Line struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Totals aggregates lines into cart or day level figures.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeLine prices a quantity of one item. Rates are percentages in
// [0, 100]; the catalog layer rejects anything outside that range before it
// reaches here. The discount applies to the subtotal and tax applies to the
// discounted base. Intermediates are never rounded so that aggregation does
// not compound rounding error.
func ComputeLine(quantity, unitPrice, discountRate, taxRate decimal.Decimal) Line {
	subtotal := unitPrice.Mul(quantity)
	discount := subtotal.Mul(discountRate).Div(oneHundred)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).Div(oneHundred)
	return Line{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    taxable.Add(tax),
	}
}

// Aggregate sums lines into totals. The sum is commutative and associative,
// so callers may aggregate incrementally or in any order.
func Aggregate(lines []Line) Totals {
	var t Totals
	t.Subtotal = decimal.Zero
	t.Discount = decimal.Zero
	t.Tax = decimal.Zero
	t.Total = decimal.Zero
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.Discount = t.Discount.Add(l.Discount)
		t.Tax = t.Tax.Add(l.Tax)
		t.Total = t.Total.Add(l.Total)
	}
	return t
}

// Round presents a monetary value with two decimal places, half away from
// zero. Only final values go through here.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Rounded returns the line with every component rounded for presentation.
func (l Line) Rounded() Line {
	return Line{
		Subtotal: Round(l.Subtotal),
		Discount: Round(l.Discount),
		Tax:      Round(l.Tax),
		Total:    Round(l.Total),
	}
}

// Rounded returns the totals with every component rounded for presentation.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: Round(t.Subtotal),
		Discount: Round(t.Discount),
		Tax:      Round(t.Tax),
		Total:    Round(t.Total),
	}
}
