package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Revenue   AccountType = "revenue"
	Expense   AccountType = "expense"
)

// NormalBalance returns the canonical balance side for the account type:
// assets and expenses carry debit balances, everything else credit.
func (t AccountType) NormalBalance() string {
	switch t {
	case Asset, Expense:
		return "debit"
	default:
		return "credit"
	}
}

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// Account is a chart-of-accounts node.
type Account struct {
	ID            int         `json:"id"`
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	Type          AccountType `json:"type"`
	NormalBalance string      `json:"normal_balance"`
	ParentID      *int        `json:"parent_id,omitempty"`
	IsActive      bool        `json:"is_active"`
	IsSystem      bool        `json:"is_system"`
	CreatedAt     time.Time   `json:"created_at"`
}

// AccountInput holds the fields required to create an account.
// NormalBalance is always derived from Type, never supplied.
type AccountInput struct {
	Code       string
	Name       string
	Type       AccountType
	ParentCode string
	IsSystem   bool
}

// ReferenceKind tags the document a journal entry or stock movement originated from.
type ReferenceKind string

const (
	RefInvoice       ReferenceKind = "INVOICE"
	RefVendorBill    ReferenceKind = "VENDOR_BILL"
	RefPayment       ReferenceKind = "PAYMENT"
	RefPurchaseOrder ReferenceKind = "PURCHASE_ORDER"
)

// DocumentRef is a tagged reference to an originating document,
// resolved by looking up the table its kind names.
type DocumentRef struct {
	Kind ReferenceKind `json:"kind"`
	ID   int           `json:"id"`
}

// JournalEntry is an atomic accounting event. Once posted it is locked
// and may only be undone by a reversing entry.
type JournalEntry struct {
	ID           int                `json:"id"`
	EntryNumber  string             `json:"entry_number"`
	EntryDate    string             `json:"entry_date"` // YYYY-MM-DD
	Description  string             `json:"description"`
	Reference    *DocumentRef       `json:"reference,omitempty"`
	IsPosted     bool               `json:"is_posted"`
	PostedAt     *time.Time         `json:"posted_at,omitempty"`
	PostedBy     *string            `json:"posted_by,omitempty"`
	IsLocked     bool               `json:"is_locked"`
	ReversedByID *int               `json:"reversed_by_id,omitempty"`
	CreatedBy    string             `json:"created_by"`
	CreatedAt    time.Time          `json:"created_at"`
	Lines        []JournalEntryLine `json:"lines"`
}

// JournalEntryLine is a single posting, owned exclusively by its entry.
// Exactly one of Debit/Credit is non-zero by convention.
type JournalEntryLine struct {
	ID          int             `json:"id"`
	EntryID     int             `json:"entry_id"`
	LineNumber  int             `json:"line_number"`
	AccountID   int             `json:"account_id"`
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// EntryLineInput is one requested posting line.
type EntryLineInput struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// EntryInput holds everything needed to create a journal entry.
type EntryInput struct {
	EntryDate   string // YYYY-MM-DD
	Description string
	Reference   *DocumentRef
	Lines       []EntryLineInput
}

// Customer is a party invoices and payments are raised against.
type Customer struct {
	ID               int       `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	PaymentTermsDays int       `json:"payment_terms_days"`
	CreatedAt        time.Time `json:"created_at"`
}

// Vendor is a supplier bills and purchase orders are raised against.
type Vendor struct {
	ID                 int       `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Address            string    `json:"address,omitempty"`
	PaymentTermsDays   int       `json:"payment_terms_days"`
	ExpenseAccountCode string    `json:"expense_account_code,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Product is a sellable or purchasable item. TrackInventory marks
// physical goods whose receipts and shipments move stock levels.
type Product struct {
	ID                 int             `json:"id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Unit               string          `json:"unit"`
	RevenueAccountCode string          `json:"revenue_account_code"`
	ExpenseAccountCode string          `json:"expense_account_code,omitempty"`
	TrackInventory     bool            `json:"track_inventory"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}
