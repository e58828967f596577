package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// balanceTolerance absorbs rounding drift in debit/credit comparisons.
var balanceTolerance = decimal.NewFromFloat(0.01)

// LineAmounts is the computed money breakdown of one document line.
// Every component is rounded to 2 decimals before any summation.
type LineAmounts struct {
	Subtotal       decimal.Decimal // quantity × unit price
	DiscountAmount decimal.Decimal // subtotal × discount%/100
	TaxableAmount  decimal.Decimal // subtotal − discount
	TaxAmount      decimal.Decimal // taxable × tax%/100
	Total          decimal.Decimal // taxable + tax
}

// ComputeLineAmounts applies the shared line-total algorithm used by all
// document types. Document types without discounts pass a zero percent.
func ComputeLineAmounts(quantity, unitPrice, discountPercent, taxRate decimal.Decimal) LineAmounts {
	subtotal := quantity.Mul(unitPrice).Round(2)
	discount := subtotal.Mul(discountPercent).Div(hundred).Round(2)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).Div(hundred).Round(2)
	return LineAmounts{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		Total:          taxable.Add(tax),
	}
}

// DocumentTotals aggregates line amounts for a document header.
// Invariant: TotalAmount = Subtotal + TaxAmount − DiscountAmount.
type DocumentTotals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// SumLineAmounts folds per-line breakdowns into document totals,
// rounding the aggregate once more.
func SumLineAmounts(lines []LineAmounts) DocumentTotals {
	var t DocumentTotals
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.DiscountAmount = t.DiscountAmount.Add(l.DiscountAmount)
		t.TaxAmount = t.TaxAmount.Add(l.TaxAmount)
	}
	t.Subtotal = t.Subtotal.Round(2)
	t.DiscountAmount = t.DiscountAmount.Round(2)
	t.TaxAmount = t.TaxAmount.Round(2)
	t.TotalAmount = t.Subtotal.Add(t.TaxAmount).Sub(t.DiscountAmount).Round(2)
	return t
}

// withinTolerance reports whether |a − b| < 0.01.
func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(balanceTolerance)
}
