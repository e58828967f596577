package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order statuses.
const (
	PODraft             = "DRAFT"
	POSent              = "SENT"
	POConfirmed         = "CONFIRMED"
	POPartiallyReceived = "PARTIALLY_RECEIVED"
	POReceived          = "RECEIVED"
	POCancelled         = "CANCELLED"
)

// PurchaseOrder is an order placed with a vendor. Receipts are tracked
// per line; billing happens through a separate VendorBill.
type PurchaseOrder struct {
	ID           int                 `json:"id"`
	PONumber     string              `json:"po_number"`
	VendorID     int                 `json:"vendor_id"`
	VendorCode   string              `json:"vendor_code"`
	VendorName   string              `json:"vendor_name"`
	Status       string              `json:"status"`
	OrderDate    string              `json:"order_date"` // YYYY-MM-DD
	ExpectedDate string              `json:"expected_date,omitempty"`
	Subtotal     decimal.Decimal     `json:"subtotal"`
	TaxAmount    decimal.Decimal     `json:"tax_amount"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	Notes        string              `json:"notes,omitempty"`
	CancelReason string              `json:"cancel_reason,omitempty"`
	SentAt       *time.Time          `json:"sent_at,omitempty"`
	ConfirmedAt  *time.Time          `json:"confirmed_at,omitempty"`
	ReceivedAt   *time.Time          `json:"received_at,omitempty"`
	CreatedBy    string              `json:"created_by"`
	CreatedAt    time.Time           `json:"created_at"`
	Items        []PurchaseOrderItem `json:"items"`
}

// PurchaseOrderItem is one ordered line. ReceivedQuantity accumulates
// across receipts and never exceeds Quantity.
type PurchaseOrderItem struct {
	ID                 int             `json:"id"`
	OrderID            int             `json:"order_id"`
	LineNumber         int             `json:"line_number"`
	ProductID          *int            `json:"product_id,omitempty"`
	ProductCode        *string         `json:"product_code,omitempty"`
	Description        string          `json:"description"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	ReceivedQuantity   decimal.Decimal `json:"received_quantity"`
	ExpenseAccountCode string          `json:"expense_account_code"`
}

// PurchaseOrderInput holds the fields required to create an order draft.
type PurchaseOrderInput struct {
	VendorCode   string
	OrderDate    string // YYYY-MM-DD
	ExpectedDate string // YYYY-MM-DD, optional
	Notes        string
	Lines        []CostLineInput
}

// ReceiptLine is one order line being received.
type ReceiptLine struct {
	ItemID   int             // references purchase_order_items.id
	Quantity decimal.Decimal // quantity received on this call
}

// PurchaseOrderService manages the purchase order lifecycle.
type PurchaseOrderService interface {
	CreateOrder(ctx context.Context, actor string, input PurchaseOrderInput) (*PurchaseOrder, error)
	SendOrder(ctx context.Context, actor string, orderID int) (*PurchaseOrder, error)
	ConfirmOrder(ctx context.Context, actor string, orderID int) (*PurchaseOrder, error)
	// ReceiveItems records quantities received against order lines. Stocked
	// products move inventory at the given location. The order becomes
	// RECEIVED once every line is fully received, else PARTIALLY_RECEIVED.
	ReceiveItems(ctx context.Context, actor string, orderID int, receipts []ReceiptLine, locationCode string, inv InventoryService) (*PurchaseOrder, error)
	// CancelOrder cancels a DRAFT or SENT order; a reason is required.
	CancelOrder(ctx context.Context, actor string, orderID int, reason string) (*PurchaseOrder, error)
	// CreateBillFromOrder builds a DRAFT vendor bill from the order's lines.
	// The order's own status is unchanged.
	CreateBillFromOrder(ctx context.Context, actor string, orderID int, bills VendorBillService) (*VendorBill, error)
	GetOrder(ctx context.Context, orderID int) (*PurchaseOrder, error)
	GetOrders(ctx context.Context, status string) ([]PurchaseOrder, error)
}
