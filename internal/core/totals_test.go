package core_test

import (
	"testing"

	"bizledger/internal/core"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestComputeLineAmounts(t *testing.T) {
	tests := []struct {
		name            string
		quantity        string
		unitPrice       string
		discountPercent string
		taxRate         string
		wantSubtotal    string
		wantDiscount    string
		wantTax         string
		wantTotal       string
	}{
		{
			name:     "plain line no discount no tax",
			quantity: "2", unitPrice: "50",
			discountPercent: "0", taxRate: "0",
			wantSubtotal: "100", wantDiscount: "0", wantTax: "0", wantTotal: "100",
		},
		{
			name:     "discount then tax on the discounted base",
			quantity: "10", unitPrice: "100",
			discountPercent: "10", taxRate: "10",
			wantSubtotal: "1000", wantDiscount: "100", wantTax: "90", wantTotal: "990",
		},
		{
			name:     "fractional quantity rounds components to cents",
			quantity: "3.333", unitPrice: "9.99",
			discountPercent: "0", taxRate: "8.25",
			wantSubtotal: "33.30", wantDiscount: "0", wantTax: "2.75", wantTotal: "36.05",
		},
		{
			name:     "full discount zeroes tax and total",
			quantity: "1", unitPrice: "250",
			discountPercent: "100", taxRate: "20",
			wantSubtotal: "250", wantDiscount: "250", wantTax: "0", wantTotal: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.ComputeLineAmounts(
				dec(tt.quantity), dec(tt.unitPrice), dec(tt.discountPercent), dec(tt.taxRate))

			if !got.Subtotal.Equal(dec(tt.wantSubtotal)) {
				t.Errorf("Subtotal = %s, want %s", got.Subtotal, tt.wantSubtotal)
			}
			if !got.DiscountAmount.Equal(dec(tt.wantDiscount)) {
				t.Errorf("DiscountAmount = %s, want %s", got.DiscountAmount, tt.wantDiscount)
			}
			if !got.TaxAmount.Equal(dec(tt.wantTax)) {
				t.Errorf("TaxAmount = %s, want %s", got.TaxAmount, tt.wantTax)
			}
			if !got.Total.Equal(dec(tt.wantTotal)) {
				t.Errorf("Total = %s, want %s", got.Total, tt.wantTotal)
			}
		})
	}
}

func TestSumLineAmounts(t *testing.T) {
	lines := []core.LineAmounts{
		core.ComputeLineAmounts(dec("2"), dec("19.99"), dec("0"), dec("10")),
		core.ComputeLineAmounts(dec("1"), dec("120"), dec("5"), dec("10")),
	}

	totals := core.SumLineAmounts(lines)

	if !totals.Subtotal.Equal(dec("159.98")) {
		t.Errorf("Subtotal = %s, want 159.98", totals.Subtotal)
	}
	if !totals.DiscountAmount.Equal(dec("6.00")) {
		t.Errorf("DiscountAmount = %s, want 6.00", totals.DiscountAmount)
	}
	if !totals.TaxAmount.Equal(dec("15.40")) {
		t.Errorf("TaxAmount = %s, want 15.40", totals.TaxAmount)
	}
	// TotalAmount = Subtotal + Tax - Discount
	if !totals.TotalAmount.Equal(dec("169.38")) {
		t.Errorf("TotalAmount = %s, want 169.38", totals.TotalAmount)
	}
}

func TestSumLineAmounts_Empty(t *testing.T) {
	totals := core.SumLineAmounts(nil)
	if !totals.TotalAmount.IsZero() {
		t.Errorf("TotalAmount = %s, want 0", totals.TotalAmount)
	}
}
