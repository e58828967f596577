package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type inventoryService struct {
	pool *pgxpool.Pool
}

// NewInventoryService constructs an InventoryService backed by PostgreSQL.
func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

func resolveStockedProductTx(ctx context.Context, tx pgx.Tx, code string) (int, error) {
	var id int
	var tracked bool
	err := tx.QueryRow(ctx,
		"SELECT id, track_inventory FROM products WHERE code = $1 AND deleted_at IS NULL", code,
	).Scan(&id, &tracked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("product %q: %w", code, ErrNotFound)
		}
		return 0, fmt.Errorf("fetch product %q: %w", code, err)
	}
	if !tracked {
		return 0, fmt.Errorf("product %q does not track inventory", code)
	}
	return id, nil
}

func resolveLocationTx(ctx context.Context, tx pgx.Tx, code string) (int, error) {
	var id int
	err := tx.QueryRow(ctx,
		"SELECT id FROM stock_locations WHERE code = $1", code,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("stock location %q: %w", code, ErrNotFound)
		}
		return 0, fmt.Errorf("fetch stock location %q: %w", code, err)
	}
	return id, nil
}

// lockLevelTx creates the level row if absent and locks it, returning the
// current on-hand and reserved quantities.
func lockLevelTx(ctx context.Context, tx pgx.Tx, productID, locationID int) (onHand, reserved decimal.Decimal, err error) {
	_, err = tx.Exec(ctx, `
		INSERT INTO stock_levels (product_id, location_id, on_hand, reserved)
		VALUES ($1, $2, 0, 0)
		ON CONFLICT (product_id, location_id) DO NOTHING
	`, productID, locationID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("ensure stock level: %w", err)
	}

	err = tx.QueryRow(ctx, `
		SELECT on_hand, reserved FROM stock_levels
		WHERE product_id = $1 AND location_id = $2
		FOR UPDATE
	`, productID, locationID).Scan(&onHand, &reserved)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("lock stock level: %w", err)
	}
	return onHand, reserved, nil
}

func updateLevelTx(ctx context.Context, tx pgx.Tx, productID, locationID int, onHand, reserved decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		UPDATE stock_levels SET on_hand = $1, reserved = $2, updated_at = NOW()
		WHERE product_id = $3 AND location_id = $4
	`, onHand, reserved, productID, locationID)
	if err != nil {
		return fmt.Errorf("update stock level: %w", err)
	}
	return nil
}

// writeMovementTx appends one row to the stock history. Movements are
// immutable; corrections are new adjustments.
func writeMovementTx(ctx context.Context, tx pgx.Tx, actor string, productID, locationID int, movementType string, quantity decimal.Decimal, reason, reference string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (product_id, location_id, movement_type, quantity, reason, reference, moved_by)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
	`, productID, locationID, movementType, quantity, reason, reference, actor)
	if err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}
	return nil
}

func (s *inventoryService) Receive(ctx context.Context, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) (*StockLevel, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.ReceiveTx(ctx, tx, actor, productCode, locationCode, quantity, reference); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit receipt: %w", err)
	}
	return s.GetStockLevel(ctx, productCode, locationCode)
}

func (s *inventoryService) ReceiveTx(ctx context.Context, tx pgx.Tx, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) error {
	if quantity.Sign() <= 0 {
		return errors.New("receipt quantity must be positive")
	}
	productID, err := resolveStockedProductTx(ctx, tx, productCode)
	if err != nil {
		return err
	}
	locationID, err := resolveLocationTx(ctx, tx, locationCode)
	if err != nil {
		return err
	}

	onHand, reserved, err := lockLevelTx(ctx, tx, productID, locationID)
	if err != nil {
		return err
	}
	if err := updateLevelTx(ctx, tx, productID, locationID, onHand.Add(quantity), reserved); err != nil {
		return err
	}
	return writeMovementTx(ctx, tx, actor, productID, locationID, MovementReceipt, quantity, "", reference)
}

func (s *inventoryService) Issue(ctx context.Context, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) (*StockLevel, error) {
	if quantity.Sign() <= 0 {
		return nil, errors.New("issue quantity must be positive")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productID, err := resolveStockedProductTx(ctx, tx, productCode)
	if err != nil {
		return nil, err
	}
	locationID, err := resolveLocationTx(ctx, tx, locationCode)
	if err != nil {
		return nil, err
	}

	onHand, reserved, err := lockLevelTx(ctx, tx, productID, locationID)
	if err != nil {
		return nil, err
	}
	available := onHand.Sub(reserved)
	if quantity.GreaterThan(available) {
		return nil, &InsufficientError{Resource: "stock", Requested: quantity, Available: available}
	}

	if err := updateLevelTx(ctx, tx, productID, locationID, onHand.Sub(quantity), reserved); err != nil {
		return nil, err
	}
	if err := writeMovementTx(ctx, tx, actor, productID, locationID, MovementIssue, quantity.Neg(), "", reference); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit issue: %w", err)
	}
	return s.GetStockLevel(ctx, productCode, locationCode)
}

func (s *inventoryService) Adjust(ctx context.Context, actor, productCode, locationCode string, delta decimal.Decimal, reason string) (*StockLevel, error) {
	if delta.IsZero() {
		return nil, errors.New("adjustment delta cannot be zero")
	}
	if reason == "" {
		return nil, errors.New("adjustment reason is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productID, err := resolveStockedProductTx(ctx, tx, productCode)
	if err != nil {
		return nil, err
	}
	locationID, err := resolveLocationTx(ctx, tx, locationCode)
	if err != nil {
		return nil, err
	}

	onHand, reserved, err := lockLevelTx(ctx, tx, productID, locationID)
	if err != nil {
		return nil, err
	}
	next := onHand.Add(delta)
	if next.IsNegative() {
		return nil, &InsufficientError{Resource: "stock", Requested: delta.Abs(), Available: onHand}
	}

	if err := updateLevelTx(ctx, tx, productID, locationID, next, reserved); err != nil {
		return nil, err
	}
	if err := writeMovementTx(ctx, tx, actor, productID, locationID, MovementAdjustment, delta, reason, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit adjustment: %w", err)
	}
	return s.GetStockLevel(ctx, productCode, locationCode)
}

func (s *inventoryService) Reserve(ctx context.Context, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) (*StockLevel, error) {
	if quantity.Sign() <= 0 {
		return nil, errors.New("reservation quantity must be positive")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productID, err := resolveStockedProductTx(ctx, tx, productCode)
	if err != nil {
		return nil, err
	}
	locationID, err := resolveLocationTx(ctx, tx, locationCode)
	if err != nil {
		return nil, err
	}

	onHand, reserved, err := lockLevelTx(ctx, tx, productID, locationID)
	if err != nil {
		return nil, err
	}
	available := onHand.Sub(reserved)
	if quantity.GreaterThan(available) {
		return nil, &InsufficientError{Resource: "stock", Requested: quantity, Available: available}
	}

	if err := updateLevelTx(ctx, tx, productID, locationID, onHand, reserved.Add(quantity)); err != nil {
		return nil, err
	}
	if err := writeMovementTx(ctx, tx, actor, productID, locationID, MovementReserve, quantity, "", reference); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}
	return s.GetStockLevel(ctx, productCode, locationCode)
}

func (s *inventoryService) Release(ctx context.Context, actor, productCode, locationCode string, quantity decimal.Decimal, reference string) (*StockLevel, error) {
	if quantity.Sign() <= 0 {
		return nil, errors.New("release quantity must be positive")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productID, err := resolveStockedProductTx(ctx, tx, productCode)
	if err != nil {
		return nil, err
	}
	locationID, err := resolveLocationTx(ctx, tx, locationCode)
	if err != nil {
		return nil, err
	}

	onHand, reserved, err := lockLevelTx(ctx, tx, productID, locationID)
	if err != nil {
		return nil, err
	}
	if quantity.GreaterThan(reserved) {
		return nil, &InsufficientError{Resource: "reserved stock", Requested: quantity, Available: reserved}
	}

	if err := updateLevelTx(ctx, tx, productID, locationID, onHand, reserved.Sub(quantity)); err != nil {
		return nil, err
	}
	if err := writeMovementTx(ctx, tx, actor, productID, locationID, MovementRelease, quantity.Neg(), "", reference); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit release: %w", err)
	}
	return s.GetStockLevel(ctx, productCode, locationCode)
}

func (s *inventoryService) Transfer(ctx context.Context, actor, productCode, fromLocation, toLocation string, quantity decimal.Decimal, reference string) error {
	if quantity.Sign() <= 0 {
		return errors.New("transfer quantity must be positive")
	}
	if fromLocation == toLocation {
		return errors.New("transfer source and destination must differ")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productID, err := resolveStockedProductTx(ctx, tx, productCode)
	if err != nil {
		return err
	}
	fromID, err := resolveLocationTx(ctx, tx, fromLocation)
	if err != nil {
		return err
	}
	toID, err := resolveLocationTx(ctx, tx, toLocation)
	if err != nil {
		return err
	}

	// Lock levels in id order so concurrent opposite transfers cannot deadlock.
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	if _, _, err := lockLevelTx(ctx, tx, productID, first); err != nil {
		return err
	}
	if _, _, err := lockLevelTx(ctx, tx, productID, second); err != nil {
		return err
	}

	var onHand, reserved decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT on_hand, reserved FROM stock_levels WHERE product_id = $1 AND location_id = $2",
		productID, fromID,
	).Scan(&onHand, &reserved)
	if err != nil {
		return fmt.Errorf("fetch source level: %w", err)
	}
	available := onHand.Sub(reserved)
	if quantity.GreaterThan(available) {
		return &InsufficientError{Resource: "stock", Requested: quantity, Available: available}
	}

	_, err = tx.Exec(ctx, `
		UPDATE stock_levels SET on_hand = on_hand - $1, updated_at = NOW()
		WHERE product_id = $2 AND location_id = $3
	`, quantity, productID, fromID)
	if err != nil {
		return fmt.Errorf("debit source level: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE stock_levels SET on_hand = on_hand + $1, updated_at = NOW()
		WHERE product_id = $2 AND location_id = $3
	`, quantity, productID, toID)
	if err != nil {
		return fmt.Errorf("credit destination level: %w", err)
	}

	if err := writeMovementTx(ctx, tx, actor, productID, fromID, MovementTransfer, quantity.Neg(), "", reference); err != nil {
		return err
	}
	if err := writeMovementTx(ctx, tx, actor, productID, toID, MovementTransfer, quantity, "", reference); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}

func (s *inventoryService) GetStockLevel(ctx context.Context, productCode, locationCode string) (*StockLevel, error) {
	lvl := &StockLevel{}
	err := s.pool.QueryRow(ctx, `
		SELECT sl.product_id, p.code, p.name, sl.location_id, loc.code, sl.on_hand, sl.reserved
		FROM stock_levels sl
		JOIN products p        ON p.id = sl.product_id
		JOIN stock_locations loc ON loc.id = sl.location_id
		WHERE p.code = $1 AND loc.code = $2
	`, productCode, locationCode).Scan(
		&lvl.ProductID, &lvl.ProductCode, &lvl.ProductName,
		&lvl.LocationID, &lvl.LocationCode, &lvl.OnHand, &lvl.Reserved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("stock level for %s at %s: %w", productCode, locationCode, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch stock level: %w", err)
	}
	lvl.Available = lvl.OnHand.Sub(lvl.Reserved)
	return lvl, nil
}

func (s *inventoryService) GetStockLevels(ctx context.Context, locationCode string) ([]StockLevel, error) {
	q := `
		SELECT sl.product_id, p.code, p.name, sl.location_id, loc.code, sl.on_hand, sl.reserved
		FROM stock_levels sl
		JOIN products p        ON p.id = sl.product_id
		JOIN stock_locations loc ON loc.id = sl.location_id`
	var args []any
	if locationCode != "" {
		q += " WHERE loc.code = $1"
		args = append(args, locationCode)
	}
	q += " ORDER BY p.code, loc.code"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var lvl StockLevel
		if err := rows.Scan(
			&lvl.ProductID, &lvl.ProductCode, &lvl.ProductName,
			&lvl.LocationID, &lvl.LocationCode, &lvl.OnHand, &lvl.Reserved,
		); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		lvl.Available = lvl.OnHand.Sub(lvl.Reserved)
		levels = append(levels, lvl)
	}
	return levels, nil
}

func (s *inventoryService) GetMovements(ctx context.Context, productCode string, limit int) ([]StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
		SELECT sm.id, sm.product_id, p.code, sm.location_id, loc.code,
		       sm.movement_type, sm.quantity, COALESCE(sm.reason, ''), COALESCE(sm.reference, ''),
		       sm.moved_at, sm.moved_by
		FROM stock_movements sm
		JOIN products p        ON p.id = sm.product_id
		JOIN stock_locations loc ON loc.id = sm.location_id`
	args := []any{limit}
	if productCode != "" {
		q += " WHERE p.code = $2"
		args = append(args, productCode)
	}
	q += " ORDER BY sm.id DESC LIMIT $1"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(
			&m.ID, &m.ProductID, &m.ProductCode, &m.LocationID, &m.LocationCode,
			&m.MovementType, &m.Quantity, &m.Reason, &m.Reference,
			&m.MovedAt, &m.MovedBy,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}
