package core_test

import (
	"testing"
	"time"

	"bizledger/internal/core"
)

func TestInvoiceIsOverdue(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  string
		dueDate string
		want    bool
	}{
		{"due today is not overdue", core.InvoiceSent, "2026-03-15", false},
		{"due yesterday is overdue", core.InvoiceSent, "2026-03-14", true},
		{"due tomorrow is not overdue", core.InvoiceSent, "2026-03-16", false},
		{"partial past due is overdue", core.InvoicePartial, "2026-03-01", true},
		{"paid is never overdue", core.InvoicePaid, "2026-03-01", false},
		{"draft is never overdue", core.InvoiceDraft, "2026-03-01", false},
		{"void is never overdue", core.InvoiceVoid, "2026-03-01", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &core.Invoice{Status: tt.status, DueDate: tt.dueDate}
			if got := inv.IsOverdue(asOf); got != tt.want {
				t.Errorf("IsOverdue(%s, due %s) = %v, want %v", tt.status, tt.dueDate, got, tt.want)
			}
		})
	}
}

func TestQuoteIsExpired(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     string
		validUntil string
		want       bool
	}{
		{"valid through today is not expired", core.QuoteSent, "2026-03-15", false},
		{"lapsed yesterday is expired", core.QuoteSent, "2026-03-14", true},
		{"lapsed draft is expired", core.QuoteDraft, "2026-03-01", true},
		{"approved never expires", core.QuoteApproved, "2026-03-01", false},
		{"converted never expires", core.QuoteConverted, "2026-03-01", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &core.Quote{Status: tt.status, ValidUntil: tt.validUntil}
			if got := q.IsExpired(asOf); got != tt.want {
				t.Errorf("IsExpired(%s, until %s) = %v, want %v", tt.status, tt.validUntil, got, tt.want)
			}
		})
	}
}
