package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Payment records money received from a customer. The cash ledger entry
// posts at creation; allocations against invoices can follow later.
type Payment struct {
	ID              int                 `json:"id"`
	PaymentNumber   string              `json:"payment_number"`
	CustomerID      int                 `json:"customer_id"`
	CustomerCode    string              `json:"customer_code"`
	CustomerName    string              `json:"customer_name"`
	PaymentDate     string              `json:"payment_date"` // YYYY-MM-DD
	Amount          decimal.Decimal     `json:"amount"`
	AllocatedAmount decimal.Decimal     `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal   `json:"unallocated_amount"`
	Method          string              `json:"method,omitempty"`
	Reference       string              `json:"reference,omitempty"`
	BankAccountCode string              `json:"bank_account_code"`
	JournalEntryID  *int                `json:"journal_entry_id,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedBy       string              `json:"created_by"`
	CreatedAt       time.Time           `json:"created_at"`
	Allocations     []PaymentAllocation `json:"allocations"`
}

// PaymentAllocation applies part of a payment to one invoice.
type PaymentAllocation struct {
	ID            int             `json:"id"`
	PaymentID     int             `json:"payment_id"`
	InvoiceID     int             `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	AllocatedAt   time.Time       `json:"allocated_at"`
	AllocatedBy   string          `json:"allocated_by"`
}

// PaymentInput holds the fields required to record a payment.
type PaymentInput struct {
	CustomerCode    string
	PaymentDate     string // YYYY-MM-DD
	Amount          decimal.Decimal
	Method          string
	Reference       string
	BankAccountCode string // defaults to the BANK posting rule when empty
	Notes           string
	// AutoAllocate applies the payment to the customer's open invoices
	// oldest due date first until the amount runs out.
	AutoAllocate bool
}

// PaymentService records customer payments and allocates them to invoices.
type PaymentService interface {
	CreatePayment(ctx context.Context, actor string, input PaymentInput) (*Payment, error)
	// Allocate applies amount of the payment to the invoice. Allocating
	// again to the same invoice accumulates. Fails if the amount exceeds
	// the payment's unallocated balance or the invoice's balance due.
	Allocate(ctx context.Context, actor string, paymentID, invoiceID int, amount decimal.Decimal) (*Payment, error)
	// AutoAllocate spreads the payment's remaining unallocated balance
	// across the customer's open invoices, oldest due date first. A fully
	// allocated payment is a no-op.
	AutoAllocate(ctx context.Context, actor string, paymentID int) (*Payment, error)
	// Deallocate removes the allocation between a payment and an invoice,
	// restoring the invoice balance and reopening its status.
	Deallocate(ctx context.Context, actor string, paymentID, invoiceID int) (*Payment, error)
	GetPayment(ctx context.Context, paymentID int) (*Payment, error)
	GetPayments(ctx context.Context, customerCode string) ([]Payment, error)
}
