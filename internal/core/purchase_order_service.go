package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bizledger/internal/statemachine"
)

type purchaseOrderService struct {
	pool *pgxpool.Pool
}

// NewPurchaseOrderService constructs a PurchaseOrderService backed by PostgreSQL.
func NewPurchaseOrderService(pool *pgxpool.Pool) PurchaseOrderService {
	return &purchaseOrderService{pool: pool}
}

func (s *purchaseOrderService) CreateOrder(ctx context.Context, actor string, input PurchaseOrderInput) (*PurchaseOrder, error) {
	orderDate, err := time.Parse("2006-01-02", input.OrderDate)
	if err != nil {
		return nil, fmt.Errorf("invalid order date %q: %w", input.OrderDate, err)
	}
	if input.ExpectedDate != "" {
		if _, err := time.Parse("2006-01-02", input.ExpectedDate); err != nil {
			return nil, fmt.Errorf("invalid expected date %q: %w", input.ExpectedDate, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var vendorID int
	var expenseCode *string
	err = tx.QueryRow(ctx,
		"SELECT id, expense_account_code FROM vendors WHERE code = $1 AND deleted_at IS NULL",
		input.VendorCode,
	).Scan(&vendorID, &expenseCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor %q: %w", input.VendorCode, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch vendor %q: %w", input.VendorCode, err)
	}

	vendorExpense := ""
	if expenseCode != nil {
		vendorExpense = *expenseCode
	}
	lines, err := resolveCostLines(ctx, tx, vendorExpense, input.Lines)
	if err != nil {
		return nil, err
	}
	amounts := make([]LineAmounts, len(lines))
	for i, l := range lines {
		amounts[i] = l.amounts
	}
	totals := SumLineAmounts(amounts)

	poNumber, err := nextDocumentNumber(ctx, tx, PrefixPurchaseOrder, orderDate)
	if err != nil {
		return nil, err
	}

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (po_number, vendor_id, status, order_date, expected_date,
		                             subtotal, tax_amount, total_amount, notes, created_by)
		VALUES ($1, $2, 'DRAFT', $3, NULLIF($4, '')::date, $5, $6, $7, NULLIF($8, ''), $9)
		RETURNING id
	`, poNumber, vendorID, input.OrderDate, input.ExpectedDate,
		totals.Subtotal, totals.TaxAmount, totals.TotalAmount, input.Notes, actor).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("insert purchase order: %w", err)
	}

	for i, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_items (order_id, line_number, product_id, product_code, description,
			                                  quantity, unit_cost, tax_rate, tax_amount, total_amount,
			                                  received_quantity, expense_account_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11)
		`, orderID, i+1, l.productID, l.productCode, l.description,
			l.quantity, l.unitCost, l.taxRate, l.amounts.TaxAmount, l.amounts.Total,
			l.expenseAccountCode)
		if err != nil {
			return nil, fmt.Errorf("insert order line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *purchaseOrderService) transition(ctx context.Context, actor string, orderID int, event, action, stampColumn string) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		"SELECT status FROM purchase_orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch purchase order %d: %w", orderID, err)
	}

	m := statemachine.ForPurchaseOrder(status)
	if !m.Can(event) {
		return nil, &InvalidTransitionError{Entity: "purchase order", Current: status, Action: action}
	}
	next, err := m.Fire(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("transition purchase order %d: %w", orderID, err)
	}

	q := fmt.Sprintf(`
		UPDATE purchase_orders SET status = $1, %s = NOW(), updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, stampColumn)
	if _, err := tx.Exec(ctx, q, next, actor, orderID); err != nil {
		return nil, fmt.Errorf("update purchase order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order transition: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *purchaseOrderService) SendOrder(ctx context.Context, actor string, orderID int) (*PurchaseOrder, error) {
	return s.transition(ctx, actor, orderID, statemachine.EventSend, "sent", "sent_at")
}

func (s *purchaseOrderService) ConfirmOrder(ctx context.Context, actor string, orderID int) (*PurchaseOrder, error) {
	return s.transition(ctx, actor, orderID, statemachine.EventConfirm, "confirmed", "confirmed_at")
}

func (s *purchaseOrderService) ReceiveItems(ctx context.Context, actor string, orderID int, receipts []ReceiptLine, locationCode string, inv InventoryService) (*PurchaseOrder, error) {
	if len(receipts) == 0 {
		return nil, errors.New("at least one receipt line is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status, poNumber string
	err = tx.QueryRow(ctx,
		"SELECT status, po_number FROM purchase_orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&status, &poNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch purchase order %d: %w", orderID, err)
	}

	if !statemachine.ForPurchaseOrder(status).Can(statemachine.EventReceivePart) {
		return nil, &InvalidTransitionError{Entity: "purchase order", Current: status, Action: "received against"}
	}

	for _, r := range receipts {
		if r.Quantity.Sign() <= 0 {
			return nil, fmt.Errorf("receipt for item %d: quantity must be positive", r.ItemID)
		}

		var (
			ordered     decimal.Decimal
			received    decimal.Decimal
			productCode *string
			tracked     *bool
		)
		err := tx.QueryRow(ctx, `
			SELECT poi.quantity, poi.received_quantity, poi.product_code, p.track_inventory
			FROM purchase_order_items poi
			LEFT JOIN products p ON p.id = poi.product_id
			WHERE poi.id = $1 AND poi.order_id = $2
			FOR UPDATE OF poi
		`, r.ItemID, orderID).Scan(&ordered, &received, &productCode, &tracked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("order line %d: %w", r.ItemID, ErrNotFound)
			}
			return nil, fmt.Errorf("fetch order line %d: %w", r.ItemID, err)
		}

		remaining := ordered.Sub(received)
		if r.Quantity.GreaterThan(remaining) {
			return nil, &InsufficientError{Resource: "remaining order quantity", Requested: r.Quantity, Available: remaining}
		}

		_, err = tx.Exec(ctx,
			"UPDATE purchase_order_items SET received_quantity = received_quantity + $1 WHERE id = $2",
			r.Quantity, r.ItemID,
		)
		if err != nil {
			return nil, fmt.Errorf("update order line %d: %w", r.ItemID, err)
		}

		if productCode != nil && tracked != nil && *tracked {
			if err := inv.ReceiveTx(ctx, tx, actor, *productCode, locationCode, r.Quantity, poNumber); err != nil {
				return nil, fmt.Errorf("move stock for order line %d: %w", r.ItemID, err)
			}
		}
	}

	var fullyReceived bool
	err = tx.QueryRow(ctx,
		"SELECT bool_and(received_quantity >= quantity) FROM purchase_order_items WHERE order_id = $1",
		orderID,
	).Scan(&fullyReceived)
	if err != nil {
		return nil, fmt.Errorf("check receipt completion: %w", err)
	}

	if fullyReceived {
		_, err = tx.Exec(ctx, `
			UPDATE purchase_orders
			SET status = 'RECEIVED', received_at = NOW(), updated_by = $1, updated_at = NOW()
			WHERE id = $2
		`, actor, orderID)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE purchase_orders
			SET status = 'PARTIALLY_RECEIVED', updated_by = $1, updated_at = NOW()
			WHERE id = $2
		`, actor, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("update order %d status: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit receipt: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *purchaseOrderService) CancelOrder(ctx context.Context, actor string, orderID int, reason string) (*PurchaseOrder, error) {
	if reason == "" {
		return nil, errors.New("cancel reason is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		"SELECT status FROM purchase_orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch purchase order %d: %w", orderID, err)
	}

	if !statemachine.ForPurchaseOrder(status).Can(statemachine.EventCancel) {
		return nil, &InvalidTransitionError{Entity: "purchase order", Current: status, Action: "cancelled"}
	}

	_, err = tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status = 'CANCELLED', cancel_reason = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, reason, actor, orderID)
	if err != nil {
		return nil, fmt.Errorf("cancel order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *purchaseOrderService) CreateBillFromOrder(ctx context.Context, actor string, orderID int, bills VendorBillService) (*VendorBill, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case POConfirmed, POPartiallyReceived, POReceived:
	default:
		return nil, &InvalidTransitionError{Entity: "purchase order", Current: order.Status, Action: "billed"}
	}

	input := BillInput{
		VendorCode:      order.VendorCode,
		VendorReference: order.PONumber,
		BillDate:        time.Now().Format("2006-01-02"),
		Notes:           order.Notes,
		PurchaseOrderID: &order.ID,
	}
	for _, item := range order.Items {
		line := CostLineInput{
			Description:        item.Description,
			Quantity:           item.Quantity,
			UnitCost:           item.UnitCost,
			TaxRate:            item.TaxRate,
			ExpenseAccountCode: item.ExpenseAccountCode,
		}
		if item.ProductCode != nil {
			line.ProductCode = *item.ProductCode
		}
		input.Lines = append(input.Lines, line)
	}

	// The bill starts life as its own DRAFT; the order's status is untouched.
	return bills.CreateBill(ctx, actor, input)
}

const orderSelect = `
	SELECT o.id, o.po_number, o.vendor_id, v.code, v.name, o.status,
	       o.order_date::text, COALESCE(o.expected_date::text, ''),
	       o.subtotal, o.tax_amount, o.total_amount,
	       COALESCE(o.notes, ''), COALESCE(o.cancel_reason, ''),
	       o.sent_at, o.confirmed_at, o.received_at, o.created_by, o.created_at
	FROM purchase_orders o
	JOIN vendors v ON v.id = o.vendor_id`

func scanOrder(row pgx.Row) (*PurchaseOrder, error) {
	o := &PurchaseOrder{}
	err := row.Scan(
		&o.ID, &o.PONumber, &o.VendorID, &o.VendorCode, &o.VendorName, &o.Status,
		&o.OrderDate, &o.ExpectedDate,
		&o.Subtotal, &o.TaxAmount, &o.TotalAmount,
		&o.Notes, &o.CancelReason,
		&o.SentAt, &o.ConfirmedAt, &o.ReceivedAt, &o.CreatedBy, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *purchaseOrderService) GetOrder(ctx context.Context, orderID int) (*PurchaseOrder, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, orderSelect+" WHERE o.id = $1", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch purchase order %d: %w", orderID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, line_number, product_id, product_code, description,
		       quantity, unit_cost, tax_rate, tax_amount, total_amount,
		       received_quantity, expense_account_code
		FROM purchase_order_items
		WHERE order_id = $1
		ORDER BY line_number
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order %d lines: %w", orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item PurchaseOrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.LineNumber, &item.ProductID, &item.ProductCode,
			&item.Description, &item.Quantity, &item.UnitCost, &item.TaxRate,
			&item.TaxAmount, &item.TotalAmount, &item.ReceivedQuantity, &item.ExpenseAccountCode,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

func (s *purchaseOrderService) GetOrders(ctx context.Context, status string) ([]PurchaseOrder, error) {
	q := orderSelect + " WHERE o.deleted_at IS NULL"
	var args []any
	if status != "" {
		q += " AND o.status = $1"
		args = append(args, status)
	}
	q += " ORDER BY o.id DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, nil
}
