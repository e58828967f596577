package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote statuses. EXPIRED is derived (see Quote.IsExpired), never stored.
const (
	QuoteDraft     = "DRAFT"
	QuoteSent      = "SENT"
	QuoteApproved  = "APPROVED"
	QuoteRejected  = "REJECTED"
	QuoteConverted = "CONVERTED"
	QuoteExpired   = "EXPIRED" // derived only
)

// Quote is a sales proposal. An approved quote converts into a draft
// invoice carrying the same lines.
type Quote struct {
	ID             int             `json:"id"`
	QuoteNumber    string          `json:"quote_number"`
	CustomerID     int             `json:"customer_id"`
	CustomerCode   string          `json:"customer_code"`
	CustomerName   string          `json:"customer_name"`
	Status         string          `json:"status"`
	// DisplayStatus is Status with EXPIRED derived on top at read time.
	DisplayStatus  string          `json:"display_status"`
	QuoteDate      string          `json:"quote_date"`  // YYYY-MM-DD
	ValidUntil     string          `json:"valid_until"` // YYYY-MM-DD
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Notes          string          `json:"notes,omitempty"`
	InvoiceID      *int            `json:"invoice_id,omitempty"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	ApprovedAt     *time.Time      `json:"approved_at,omitempty"`
	RejectedAt     *time.Time      `json:"rejected_at,omitempty"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	Items          []QuoteItem     `json:"items"`
}

// IsExpired reports whether the quote lapsed: valid_until has passed and
// it was never approved or converted.
func (q *Quote) IsExpired(asOf time.Time) bool {
	if q.Status == QuoteApproved || q.Status == QuoteConverted {
		return false
	}
	until, err := time.Parse("2006-01-02", q.ValidUntil)
	if err != nil {
		return false
	}
	return until.Before(asOf.Truncate(24 * time.Hour))
}

func (q *Quote) displayStatus(asOf time.Time) string {
	if q.IsExpired(asOf) {
		return QuoteExpired
	}
	return q.Status
}

// QuoteItem is one quote line, owned by its quote. Its shape mirrors
// InvoiceItem so conversion copies fields verbatim.
type QuoteItem struct {
	ID                 int             `json:"id"`
	QuoteID            int             `json:"quote_id"`
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

// QuoteInput holds the fields required to create a quote draft.
type QuoteInput struct {
	CustomerCode string
	QuoteDate    string // YYYY-MM-DD
	ValidUntil   string // YYYY-MM-DD
	Notes        string
	Lines        []LineInput
}

// QuoteService manages the quote lifecycle through to invoice conversion.
type QuoteService interface {
	CreateQuote(ctx context.Context, actor string, input QuoteInput) (*Quote, error)
	SendQuote(ctx context.Context, actor string, quoteID int) (*Quote, error)
	ApproveQuote(ctx context.Context, actor string, quoteID int) (*Quote, error)
	RejectQuote(ctx context.Context, actor string, quoteID int) (*Quote, error)
	// ConvertToInvoice turns an APPROVED quote into a new DRAFT invoice with
	// identical lines, marks the quote CONVERTED, and links the invoice.
	ConvertToInvoice(ctx context.Context, actor string, quoteID int, invoices InvoiceService) (*Invoice, error)
	GetQuote(ctx context.Context, quoteID int) (*Quote, error)
	GetQuotes(ctx context.Context, status string) ([]Quote, error)
}
