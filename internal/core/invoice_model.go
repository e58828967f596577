package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Invoice statuses. OVERDUE is derived (see Invoice.IsOverdue), never stored.
const (
	InvoiceDraft   = "DRAFT"
	InvoiceSent    = "SENT"
	InvoicePartial = "PARTIAL"
	InvoicePaid    = "PAID"
	InvoiceVoid    = "VOID"
	InvoiceOverdue = "OVERDUE" // derived only
)

// Invoice is a sales document. Sending it posts DR AR / CR revenue / CR tax
// payable to the ledger; payments then drive PARTIAL/PAID via allocations.
type Invoice struct {
	ID             int             `json:"id"`
	InvoiceNumber  string          `json:"invoice_number"`
	CustomerID     int             `json:"customer_id"`
	CustomerCode   string          `json:"customer_code"`
	CustomerName   string          `json:"customer_name"`
	Status         string          `json:"status"`
	// DisplayStatus is Status with OVERDUE derived on top at read time.
	DisplayStatus  string          `json:"display_status"`
	InvoiceDate    string          `json:"invoice_date"` // YYYY-MM-DD
	DueDate        string          `json:"due_date"`     // YYYY-MM-DD
	Currency       string          `json:"currency"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
	Notes          string          `json:"notes,omitempty"`
	JournalEntryID *int            `json:"journal_entry_id,omitempty"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	VoidedAt       *time.Time      `json:"voided_at,omitempty"`
	VoidReason     string          `json:"void_reason,omitempty"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	Items          []InvoiceItem   `json:"items"`
}

// IsOverdue reports whether the invoice is past due and still collecting:
// sent or partially paid with the due date behind asOf.
func (inv *Invoice) IsOverdue(asOf time.Time) bool {
	if inv.Status != InvoiceSent && inv.Status != InvoicePartial {
		return false
	}
	due, err := time.Parse("2006-01-02", inv.DueDate)
	if err != nil {
		return false
	}
	return due.Before(asOf.Truncate(24 * time.Hour))
}

func (inv *Invoice) displayStatus(asOf time.Time) string {
	if inv.IsOverdue(asOf) {
		return InvoiceOverdue
	}
	return inv.Status
}

// InvoiceItem is one invoice line, owned by its invoice.
type InvoiceItem struct {
	ID                 int             `json:"id"`
	InvoiceID          int             `json:"invoice_id"`
	LineNumber         int             `json:"line_number"`
	ProductID          *int            `json:"product_id,omitempty"`
	ProductCode        *string         `json:"product_code,omitempty"`
	Description        string          `json:"description"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercent    decimal.Decimal `json:"discount_percent"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	RevenueAccountCode string          `json:"revenue_account_code"`
}

// LineInput is one requested sales line (invoices and quotes).
// ProductCode is optional; when set, description and revenue account
// default from the product. A nil UnitPrice takes the product's list
// price; an explicit zero keeps the line free.
type LineInput struct {
	ProductCode     string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       *decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxRate         decimal.Decimal
}

// InvoiceInput holds the fields required to create an invoice draft.
type InvoiceInput struct {
	CustomerCode string
	InvoiceDate  string // YYYY-MM-DD
	DueDate      string // YYYY-MM-DD, defaults from customer payment terms
	Currency     string
	ExchangeRate decimal.Decimal
	Notes        string
	Lines        []LineInput
}

// InvoiceService manages the invoice lifecycle and its ledger postings.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, actor string, input InvoiceInput) (*Invoice, error)
	// CreateInvoiceTx creates a draft inside the caller's transaction and
	// returns its id. Used by quote conversion.
	CreateInvoiceTx(ctx context.Context, tx pgx.Tx, actor string, input InvoiceInput) (int, error)
	// UpdateDraft replaces a DRAFT invoice's header fields and lines.
	UpdateDraft(ctx context.Context, actor string, invoiceID int, input InvoiceInput) (*Invoice, error)
	// SendInvoice transitions DRAFT → SENT and posts the receivable entry.
	SendInvoice(ctx context.Context, actor string, invoiceID int) (*Invoice, error)
	// VoidInvoice voids an unpaid invoice and reverses its ledger entry.
	VoidInvoice(ctx context.Context, actor string, invoiceID int, reason string) (*Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error)
	GetInvoices(ctx context.Context, status string) ([]Invoice, error)
}
