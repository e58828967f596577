package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Stock movement types.
const (
	MovementReceipt    = "RECEIPT"
	MovementIssue      = "ISSUE"
	MovementAdjustment = "ADJUSTMENT"
	MovementTransfer   = "TRANSFER"
	MovementReserve    = "RESERVE" // earmarks stock, on-hand unchanged
	MovementRelease    = "RELEASE"
)

// StockLocation is a warehouse or storage site.
type StockLocation struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// StockLevel is the current position of one product at one location.
// Available is on-hand minus reserved.
type StockLevel struct {
	ProductID    int             `json:"product_id"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name"`
	LocationID   int             `json:"location_id"`
	LocationCode string          `json:"location_code"`
	OnHand       decimal.Decimal `json:"on_hand"`
	Reserved     decimal.Decimal `json:"reserved"`
	Available    decimal.Decimal `json:"available"`
}

// StockMovement is one immutable ledger row in the stock history.
type StockMovement struct {
	ID           int             `json:"id"`
	ProductID    int             `json:"product_id"`
	ProductCode  string          `json:"product_code"`
	LocationID   int             `json:"location_id"`
	LocationCode string          `json:"location_code"`
	MovementType string          `json:"movement_type"`
	Quantity     decimal.Decimal `json:"quantity"` // signed: positive in, negative out
	Reason       string          `json:"reason,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	MovedAt      time.Time       `json:"moved_at"`
	MovedBy      string          `json:"moved_by"`
}

// InventoryService tracks stock quantities per product and location.
// Movements are append-only; corrections are new adjustments.
type InventoryService interface {
	// Receive adds quantity on hand, recording a RECEIPT movement.
	Receive(ctx context.Context, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) (*StockLevel, error)
	// ReceiveTx is Receive inside a caller-managed transaction.
	ReceiveTx(ctx context.Context, tx pgx.Tx, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) error
	// Issue removes quantity on hand. Fails with InsufficientError when
	// the available quantity is less than requested.
	Issue(ctx context.Context, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) (*StockLevel, error)
	// Adjust sets no target; it applies a signed delta with a required
	// reason. Negative adjustments cannot take on-hand below zero.
	Adjust(ctx context.Context, actor, productCode, locationCode string, delta decimal.Decimal, reason string) (*StockLevel, error)
	// Reserve earmarks available stock; Release frees a reservation.
	Reserve(ctx context.Context, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) (*StockLevel, error)
	Release(ctx context.Context, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) (*StockLevel, error)
	// Transfer moves quantity between two locations atomically.
	Transfer(ctx context.Context, actor, productCode, fromLocation, toLocation string, quantity decimal.Decimal, reference string) error
	GetStockLevel(ctx context.Context, productCode, locationCode string) (*StockLevel, error)
	GetStockLevels(ctx context.Context, locationCode string) ([]StockLevel, error)
	GetMovements(ctx context.Context, productCode string, limit int) ([]StockMovement, error)
}
