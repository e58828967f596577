package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Vendor bill statuses.
const (
	BillDraft    = "DRAFT"
	BillReceived = "RECEIVED"
	BillPartial  = "PARTIAL"
	BillPaid     = "PAID"
	BillVoid     = "VOID"
)

// VendorBill is a purchase document. Receiving it posts DR expense
// (grouped by account) and DR tax input against CR AP.
type VendorBill struct {
	ID              int             `json:"id"`
	BillNumber      string          `json:"bill_number"`
	VendorID        int             `json:"vendor_id"`
	VendorCode      string          `json:"vendor_code"`
	VendorName      string          `json:"vendor_name"`
	VendorReference string          `json:"vendor_reference,omitempty"` // the vendor's own invoice number
	Status          string          `json:"status"`
	BillDate        string          `json:"bill_date"` // YYYY-MM-DD
	DueDate         string          `json:"due_date"`  // YYYY-MM-DD
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	BalanceDue      decimal.Decimal `json:"balance_due"`
	Notes           string          `json:"notes,omitempty"`
	JournalEntryID  *int            `json:"journal_entry_id,omitempty"`
	PurchaseOrderID *int            `json:"purchase_order_id,omitempty"`
	ReceivedAt      *time.Time      `json:"received_at,omitempty"`
	VoidedAt        *time.Time      `json:"voided_at,omitempty"`
	VoidReason      string          `json:"void_reason,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []BillItem      `json:"items"`
}

// BillItem is one bill line, owned by its bill.
type BillItem struct {
	ID                 int             `json:"id"`
	BillID             int             `json:"bill_id"`
	LineNumber         int             `json:"line_number"`
	ProductID          *int            `json:"product_id,omitempty"`
	ProductCode        *string         `json:"product_code,omitempty"`
	Description        string          `json:"description"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	ExpenseAccountCode string          `json:"expense_account_code"`
}

// CostLineInput is one requested purchase line (bills and purchase orders).
// Purchase documents carry no line discounts.
type CostLineInput struct {
	ProductCode        string
	Description        string
	Quantity           decimal.Decimal
	UnitCost           decimal.Decimal
	TaxRate            decimal.Decimal
	ExpenseAccountCode string // defaults from product, then vendor
}

// BillInput holds the fields required to create a vendor bill draft.
type BillInput struct {
	VendorCode      string
	VendorReference string
	BillDate        string // YYYY-MM-DD
	DueDate         string // YYYY-MM-DD, defaults from vendor payment terms
	Notes           string
	PurchaseOrderID *int
	Lines           []CostLineInput
}

// VendorBillService manages the vendor bill lifecycle and its postings.
type VendorBillService interface {
	CreateBill(ctx context.Context, actor string, input BillInput) (*VendorBill, error)
	// ReceiveBill transitions DRAFT → RECEIVED and posts the payable entry.
	ReceiveBill(ctx context.Context, actor string, billID int) (*VendorBill, error)
	// RecordPayment pays down a received bill: posts DR AP / CR bank and
	// recomputes PARTIAL/PAID.
	RecordPayment(ctx context.Context, actor string, billID int, amount decimal.Decimal, bankAccountCode, paymentDate string) (*VendorBill, error)
	// VoidBill voids an unpaid bill and reverses its ledger entry.
	VoidBill(ctx context.Context, actor string, billID int, reason string) (*VendorBill, error)
	GetBill(ctx context.Context, billID int) (*VendorBill, error)
	GetBills(ctx context.Context, status string) ([]VendorBill, error)
}
