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

type billService struct {
	pool   *pgxpool.Pool
	rules  PostingRules
	ledger LedgerService
}

// NewVendorBillService constructs a VendorBillService backed by PostgreSQL.
func NewVendorBillService(pool *pgxpool.Pool, rules PostingRules, ledger LedgerService) VendorBillService {
	return &billService{pool: pool, rules: rules, ledger: ledger}
}

// billLine is a fully resolved purchase line ready for insertion.
type billLine struct {
	productID          *int
	productCode        *string
	description        string
	quantity           decimal.Decimal
	unitCost           decimal.Decimal
	taxRate            decimal.Decimal
	amounts            LineAmounts
	expenseAccountCode string
}

// resolveCostLines applies product and vendor defaults and computes amounts
// for purchase lines. Shared by vendor bills and purchase orders.
func resolveCostLines(ctx context.Context, tx pgx.Tx, vendorExpenseCode string, lines []CostLineInput) ([]billLine, error) {
	if len(lines) == 0 {
		return nil, errors.New("at least one line is required")
	}

	resolved := make([]billLine, 0, len(lines))
	for i, in := range lines {
		if in.Quantity.Sign() <= 0 {
			return nil, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if in.UnitCost.IsNegative() {
			return nil, fmt.Errorf("line %d: unit cost cannot be negative", i+1)
		}
		if in.TaxRate.IsNegative() {
			return nil, fmt.Errorf("line %d: tax rate cannot be negative", i+1)
		}

		line := billLine{
			description:        in.Description,
			quantity:           in.Quantity,
			unitCost:           in.UnitCost,
			taxRate:            in.TaxRate,
			expenseAccountCode: in.ExpenseAccountCode,
		}

		if in.ProductCode != "" {
			var (
				productID   int
				productName string
				expenseCode *string
			)
			err := tx.QueryRow(ctx, `
				SELECT id, name, expense_account_code
				FROM products WHERE code = $1 AND deleted_at IS NULL
			`, in.ProductCode).Scan(&productID, &productName, &expenseCode)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("line %d: product %q: %w", i+1, in.ProductCode, ErrNotFound)
				}
				return nil, fmt.Errorf("line %d: fetch product %q: %w", i+1, in.ProductCode, err)
			}
			code := in.ProductCode
			line.productID = &productID
			line.productCode = &code
			if line.description == "" {
				line.description = productName
			}
			if line.expenseAccountCode == "" && expenseCode != nil {
				line.expenseAccountCode = *expenseCode
			}
		}

		if line.expenseAccountCode == "" {
			line.expenseAccountCode = vendorExpenseCode
		}
		if line.expenseAccountCode == "" {
			return nil, fmt.Errorf("line %d: expense account code is required", i+1)
		}
		if line.description == "" {
			return nil, fmt.Errorf("line %d: description is required", i+1)
		}

		line.amounts = ComputeLineAmounts(line.quantity, line.unitCost, decimal.Zero, line.taxRate)
		resolved = append(resolved, line)
	}
	return resolved, nil
}

func (s *billService) CreateBill(ctx context.Context, actor string, input BillInput) (*VendorBill, error) {
	billDate, err := time.Parse("2006-01-02", input.BillDate)
	if err != nil {
		return nil, fmt.Errorf("invalid bill date %q: %w", input.BillDate, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		vendorID    int
		termsDays   int
		expenseCode *string
	)
	err = tx.QueryRow(ctx, `
		SELECT id, payment_terms_days, expense_account_code
		FROM vendors WHERE code = $1 AND deleted_at IS NULL
	`, input.VendorCode).Scan(&vendorID, &termsDays, &expenseCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor %q: %w", input.VendorCode, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch vendor %q: %w", input.VendorCode, err)
	}

	dueDate := input.DueDate
	if dueDate == "" {
		dueDate = billDate.AddDate(0, 0, termsDays).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", dueDate); err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", dueDate, err)
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

	billNumber, err := nextDocumentNumber(ctx, tx, PrefixVendorBill, billDate)
	if err != nil {
		return nil, err
	}

	var billID int
	err = tx.QueryRow(ctx, `
		INSERT INTO vendor_bills (bill_number, vendor_id, vendor_reference, status, bill_date, due_date,
		                          subtotal, tax_amount, total_amount, paid_amount, balance_due,
		                          notes, purchase_order_id, created_by)
		VALUES ($1, $2, NULLIF($3, ''), 'DRAFT', $4, $5, $6, $7, $8, 0, $8, NULLIF($9, ''), $10, $11)
		RETURNING id
	`, billNumber, vendorID, input.VendorReference, input.BillDate, dueDate,
		totals.Subtotal, totals.TaxAmount, totals.TotalAmount,
		input.Notes, input.PurchaseOrderID, actor).Scan(&billID)
	if err != nil {
		return nil, fmt.Errorf("insert vendor bill: %w", err)
	}

	for i, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO vendor_bill_items (bill_id, line_number, product_id, product_code, description,
			                               quantity, unit_cost, tax_rate, tax_amount, total_amount,
			                               expense_account_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, billID, i+1, l.productID, l.productCode, l.description,
			l.quantity, l.unitCost, l.taxRate, l.amounts.TaxAmount, l.amounts.Total,
			l.expenseAccountCode)
		if err != nil {
			return nil, fmt.Errorf("insert bill line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit vendor bill: %w", err)
	}
	return s.GetBill(ctx, billID)
}

func (s *billService) ReceiveBill(ctx context.Context, actor string, billID int) (*VendorBill, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status      string
		billNumber  string
		billDate    string
		vendorName  string
		totalAmount decimal.Decimal
		taxAmount   decimal.Decimal
	)
	err = tx.QueryRow(ctx, `
		SELECT b.status, b.bill_number, b.bill_date::text, v.name, b.total_amount, b.tax_amount
		FROM vendor_bills b JOIN vendors v ON v.id = b.vendor_id
		WHERE b.id = $1
		FOR UPDATE OF b
	`, billID).Scan(&status, &billNumber, &billDate, &vendorName, &totalAmount, &taxAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor bill %d: %w", billID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch vendor bill %d: %w", billID, err)
	}

	if !statemachine.ForVendorBill(status).Can(statemachine.EventReceive) {
		return nil, &InvalidTransitionError{Entity: "vendor bill", Current: status, Action: "received"}
	}

	apCode, err := s.rules.Resolve(ctx, RoleAP)
	if err != nil {
		return nil, err
	}

	// Expenses are debited per account so mixed bills split cleanly.
	var entryLines []EntryLineInput
	rows, err := tx.Query(ctx, `
		SELECT expense_account_code, SUM(total_amount - tax_amount)
		FROM vendor_bill_items
		WHERE bill_id = $1
		GROUP BY expense_account_code
		ORDER BY expense_account_code
	`, billID)
	if err != nil {
		return nil, fmt.Errorf("group expenses for bill %d: %w", billID, err)
	}
	for rows.Next() {
		var code string
		var amount decimal.Decimal
		if err := rows.Scan(&code, &amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expense group: %w", err)
		}
		entryLines = append(entryLines, EntryLineInput{
			AccountCode: code,
			Debit:       amount,
			Description: fmt.Sprintf("Expense - bill %s", billNumber),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense groups: %w", err)
	}

	if taxAmount.Sign() > 0 {
		taxCode, err := s.rules.Resolve(ctx, RoleTaxInput)
		if err != nil {
			return nil, err
		}
		entryLines = append(entryLines, EntryLineInput{
			AccountCode: taxCode,
			Debit:       taxAmount,
			Description: fmt.Sprintf("Input tax - bill %s", billNumber),
		})
	}

	entryLines = append(entryLines, EntryLineInput{
		AccountCode: apCode,
		Credit:      totalAmount,
		Description: fmt.Sprintf("Bill %s", billNumber),
	})

	entryID, err := s.ledger.CreateEntryTx(ctx, tx, actor, EntryInput{
		EntryDate:   billDate,
		Description: fmt.Sprintf("Bill %s - %s", billNumber, vendorName),
		Reference:   &DocumentRef{Kind: RefVendorBill, ID: billID},
		Lines:       entryLines,
	})
	if err != nil {
		return nil, fmt.Errorf("post bill %s: %w", billNumber, err)
	}
	if _, err := s.ledger.PostEntryTx(ctx, tx, actor, entryID); err != nil {
		return nil, fmt.Errorf("post bill %s: %w", billNumber, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE vendor_bills
		SET status = 'RECEIVED', received_at = NOW(), journal_entry_id = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, entryID, actor, billID)
	if err != nil {
		return nil, fmt.Errorf("mark bill %d received: %w", billID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit receive: %w", err)
	}
	return s.GetBill(ctx, billID)
}

func (s *billService) RecordPayment(ctx context.Context, actor string, billID int, amount decimal.Decimal, bankAccountCode, paymentDate string) (*VendorBill, error) {
	if amount.Sign() <= 0 {
		return nil, errors.New("payment amount must be positive")
	}
	if _, err := time.Parse("2006-01-02", paymentDate); err != nil {
		return nil, fmt.Errorf("invalid payment date %q: %w", paymentDate, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status     string
		billNumber string
		paidAmount decimal.Decimal
		balanceDue decimal.Decimal
	)
	err = tx.QueryRow(ctx, `
		SELECT status, bill_number, paid_amount, balance_due
		FROM vendor_bills WHERE id = $1 FOR UPDATE
	`, billID).Scan(&status, &billNumber, &paidAmount, &balanceDue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor bill %d: %w", billID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch vendor bill %d: %w", billID, err)
	}

	if status != BillReceived && status != BillPartial {
		return nil, &InvalidTransitionError{Entity: "vendor bill", Current: status, Action: "paid"}
	}
	if amount.GreaterThan(balanceDue) {
		return nil, &InsufficientError{Resource: "balance due", Requested: amount, Available: balanceDue}
	}

	apCode, err := s.rules.Resolve(ctx, RoleAP)
	if err != nil {
		return nil, err
	}
	bankCode := bankAccountCode
	if bankCode == "" {
		bankCode, err = s.rules.Resolve(ctx, RoleBank)
		if err != nil {
			return nil, err
		}
	}

	entryID, err := s.ledger.CreateEntryTx(ctx, tx, actor, EntryInput{
		EntryDate:   paymentDate,
		Description: fmt.Sprintf("Payment for bill %s", billNumber),
		Reference:   &DocumentRef{Kind: RefVendorBill, ID: billID},
		Lines: []EntryLineInput{
			{AccountCode: apCode, Debit: amount, Description: fmt.Sprintf("Bill %s", billNumber)},
			{AccountCode: bankCode, Credit: amount, Description: fmt.Sprintf("Bill %s", billNumber)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("post bill payment: %w", err)
	}
	if _, err := s.ledger.PostEntryTx(ctx, tx, actor, entryID); err != nil {
		return nil, fmt.Errorf("post bill payment: %w", err)
	}

	newPaid := paidAmount.Add(amount)
	newBalance := balanceDue.Sub(amount)
	newStatus := BillPartial
	if newBalance.Sign() <= 0 {
		newStatus = BillPaid
	}

	_, err = tx.Exec(ctx, `
		UPDATE vendor_bills
		SET paid_amount = $1, balance_due = $2, status = $3, updated_by = $4, updated_at = NOW()
		WHERE id = $5
	`, newPaid, newBalance, newStatus, actor, billID)
	if err != nil {
		return nil, fmt.Errorf("update bill %d payment: %w", billID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit bill payment: %w", err)
	}
	return s.GetBill(ctx, billID)
}

func (s *billService) VoidBill(ctx context.Context, actor string, billID int, reason string) (*VendorBill, error) {
	if reason == "" {
		return nil, errors.New("void reason is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status         string
		paidAmount     decimal.Decimal
		journalEntryID *int
	)
	err = tx.QueryRow(ctx,
		"SELECT status, paid_amount, journal_entry_id FROM vendor_bills WHERE id = $1 FOR UPDATE",
		billID,
	).Scan(&status, &paidAmount, &journalEntryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor bill %d: %w", billID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch vendor bill %d: %w", billID, err)
	}

	if !statemachine.ForVendorBill(status).Can(statemachine.EventVoid) {
		return nil, &InvalidTransitionError{Entity: "vendor bill", Current: status, Action: "voided"}
	}
	if paidAmount.Sign() > 0 {
		return nil, fmt.Errorf("vendor bill %d has payments applied and cannot be voided", billID)
	}

	if journalEntryID != nil {
		if _, err := s.ledger.ReverseEntryTx(ctx, tx, actor, *journalEntryID, reason); err != nil {
			return nil, fmt.Errorf("reverse bill entry: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE vendor_bills
		SET status = 'VOID', voided_at = NOW(), void_reason = $1, balance_due = 0,
		    updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, reason, actor, billID)
	if err != nil {
		return nil, fmt.Errorf("void bill %d: %w", billID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit void: %w", err)
	}
	return s.GetBill(ctx, billID)
}

const billSelect = `
	SELECT b.id, b.bill_number, b.vendor_id, v.code, v.name, COALESCE(b.vendor_reference, ''),
	       b.status, b.bill_date::text, b.due_date::text,
	       b.subtotal, b.tax_amount, b.total_amount, b.paid_amount, b.balance_due,
	       COALESCE(b.notes, ''), b.journal_entry_id, b.purchase_order_id,
	       b.received_at, b.voided_at, COALESCE(b.void_reason, ''), b.created_by, b.created_at
	FROM vendor_bills b
	JOIN vendors v ON v.id = b.vendor_id`

func scanBill(row pgx.Row) (*VendorBill, error) {
	b := &VendorBill{}
	err := row.Scan(
		&b.ID, &b.BillNumber, &b.VendorID, &b.VendorCode, &b.VendorName, &b.VendorReference,
		&b.Status, &b.BillDate, &b.DueDate,
		&b.Subtotal, &b.TaxAmount, &b.TotalAmount, &b.PaidAmount, &b.BalanceDue,
		&b.Notes, &b.JournalEntryID, &b.PurchaseOrderID,
		&b.ReceivedAt, &b.VoidedAt, &b.VoidReason, &b.CreatedBy, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *billService) GetBill(ctx context.Context, billID int) (*VendorBill, error) {
	b, err := scanBill(s.pool.QueryRow(ctx, billSelect+" WHERE b.id = $1", billID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor bill %d: %w", billID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch vendor bill %d: %w", billID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, bill_id, line_number, product_id, product_code, description,
		       quantity, unit_cost, tax_rate, tax_amount, total_amount, expense_account_code
		FROM vendor_bill_items
		WHERE bill_id = $1
		ORDER BY line_number
	`, billID)
	if err != nil {
		return nil, fmt.Errorf("fetch bill %d lines: %w", billID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item BillItem
		if err := rows.Scan(
			&item.ID, &item.BillID, &item.LineNumber, &item.ProductID, &item.ProductCode,
			&item.Description, &item.Quantity, &item.UnitCost, &item.TaxRate,
			&item.TaxAmount, &item.TotalAmount, &item.ExpenseAccountCode,
		); err != nil {
			return nil, fmt.Errorf("scan bill line: %w", err)
		}
		b.Items = append(b.Items, item)
	}
	return b, nil
}

func (s *billService) GetBills(ctx context.Context, status string) ([]VendorBill, error) {
	q := billSelect + " WHERE b.deleted_at IS NULL"
	var args []any
	if status != "" {
		q += " AND b.status = $1"
		args = append(args, status)
	}
	q += " ORDER BY b.id DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list vendor bills: %w", err)
	}
	defer rows.Close()

	var bills []VendorBill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor bill: %w", err)
		}
		bills = append(bills, *b)
	}
	return bills, nil
}
