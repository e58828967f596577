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

type invoiceService struct {
	pool   *pgxpool.Pool
	rules  PostingRules
	ledger LedgerService
}

// NewInvoiceService constructs an InvoiceService backed by PostgreSQL.
func NewInvoiceService(pool *pgxpool.Pool, rules PostingRules, ledger LedgerService) InvoiceService {
	return &invoiceService{pool: pool, rules: rules, ledger: ledger}
}

// invoiceLine is a fully resolved sales line ready for insertion:
// product defaults applied, amounts computed.
type invoiceLine struct {
	productID          *int
	productCode        *string
	description        string
	quantity           decimal.Decimal
	unitPrice          decimal.Decimal
	discountPercent    decimal.Decimal
	taxRate            decimal.Decimal
	amounts            LineAmounts
	revenueAccountCode string
}

// resolveSalesLinesTx applies product defaults and computes amounts for a
// set of sales lines. Shared by invoices and quotes.
func (s *invoiceService) resolveSalesLinesTx(ctx context.Context, tx pgx.Tx, lines []LineInput) ([]invoiceLine, error) {
	return resolveSalesLines(ctx, tx, s.rules, lines)
}

func resolveSalesLines(ctx context.Context, tx pgx.Tx, rules PostingRules, lines []LineInput) ([]invoiceLine, error) {
	if len(lines) == 0 {
		return nil, errors.New("at least one line is required")
	}

	resolved := make([]invoiceLine, 0, len(lines))
	for i, in := range lines {
		if in.Quantity.Sign() <= 0 {
			return nil, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("line %d: unit price cannot be negative", i+1)
		}
		if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
			return nil, fmt.Errorf("line %d: discount percent must be between 0 and 100", i+1)
		}
		if in.TaxRate.IsNegative() {
			return nil, fmt.Errorf("line %d: tax rate cannot be negative", i+1)
		}

		line := invoiceLine{
			description:     in.Description,
			quantity:        in.Quantity,
			discountPercent: in.DiscountPercent,
			taxRate:         in.TaxRate,
		}
		if in.UnitPrice != nil {
			line.unitPrice = *in.UnitPrice
		}

		if in.ProductCode != "" {
			var (
				productID    int
				productName  string
				productPrice decimal.Decimal
				revenueCode  string
			)
			err := tx.QueryRow(ctx, `
				SELECT id, name, unit_price, revenue_account_code
				FROM products WHERE code = $1 AND deleted_at IS NULL
			`, in.ProductCode).Scan(&productID, &productName, &productPrice, &revenueCode)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("line %d: product %q: %w", i+1, in.ProductCode, ErrNotFound)
				}
				return nil, fmt.Errorf("line %d: fetch product %q: %w", i+1, in.ProductCode, err)
			}
			code := in.ProductCode
			line.productID = &productID
			line.productCode = &code
			line.revenueAccountCode = revenueCode
			if line.description == "" {
				line.description = productName
			}
			// An explicit zero price stays zero; only an absent price
			// falls back to the product's list price.
			if in.UnitPrice == nil {
				line.unitPrice = productPrice
			}
		}

		if line.description == "" {
			return nil, fmt.Errorf("line %d: description is required", i+1)
		}
		if line.revenueAccountCode == "" {
			code, err := rules.Resolve(ctx, RoleRevenue)
			if err != nil {
				return nil, err
			}
			line.revenueAccountCode = code
		}

		line.amounts = ComputeLineAmounts(line.quantity, line.unitPrice, line.discountPercent, line.taxRate)
		resolved = append(resolved, line)
	}
	return resolved, nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, actor string, input InvoiceInput) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invoiceID, err := s.CreateInvoiceTx(ctx, tx, actor, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit invoice: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) CreateInvoiceTx(ctx context.Context, tx pgx.Tx, actor string, input InvoiceInput) (int, error) {
	invoiceDate, err := time.Parse("2006-01-02", input.InvoiceDate)
	if err != nil {
		return 0, fmt.Errorf("invalid invoice date %q: %w", input.InvoiceDate, err)
	}

	var customerID, termsDays int
	err = tx.QueryRow(ctx,
		"SELECT id, payment_terms_days FROM customers WHERE code = $1 AND deleted_at IS NULL",
		input.CustomerCode,
	).Scan(&customerID, &termsDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("customer %q: %w", input.CustomerCode, ErrNotFound)
		}
		return 0, fmt.Errorf("fetch customer %q: %w", input.CustomerCode, err)
	}

	dueDate := input.DueDate
	if dueDate == "" {
		dueDate = invoiceDate.AddDate(0, 0, termsDays).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", dueDate); err != nil {
		return 0, fmt.Errorf("invalid due date %q: %w", dueDate, err)
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}
	exchangeRate := input.ExchangeRate
	if exchangeRate.IsZero() {
		exchangeRate = decimal.NewFromInt(1)
	}

	lines, err := s.resolveSalesLinesTx(ctx, tx, input.Lines)
	if err != nil {
		return 0, err
	}

	amounts := make([]LineAmounts, len(lines))
	for i, l := range lines {
		amounts[i] = l.amounts
	}
	totals := SumLineAmounts(amounts)

	// Numbers are allocated at creation so drafts are already citable.
	invoiceNumber, err := nextDocumentNumber(ctx, tx, PrefixInvoice, invoiceDate)
	if err != nil {
		return 0, err
	}

	var invoiceID int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, customer_id, status, invoice_date, due_date,
		                      currency, exchange_rate, subtotal, discount_amount, tax_amount,
		                      total_amount, paid_amount, balance_due, notes, created_by)
		VALUES ($1, $2, 'DRAFT', $3, $4, $5, $6, $7, $8, $9, $10, 0, $10, NULLIF($11, ''), $12)
		RETURNING id
	`, invoiceNumber, customerID, input.InvoiceDate, dueDate, currency, exchangeRate,
		totals.Subtotal, totals.DiscountAmount, totals.TaxAmount, totals.TotalAmount,
		input.Notes, actor).Scan(&invoiceID)
	if err != nil {
		return 0, fmt.Errorf("insert invoice: %w", err)
	}

	if err := insertInvoiceItems(ctx, tx, invoiceID, lines); err != nil {
		return 0, err
	}
	return invoiceID, nil
}

func insertInvoiceItems(ctx context.Context, tx pgx.Tx, invoiceID int, lines []invoiceLine) error {
	for i, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, line_number, product_id, product_code, description,
			                           quantity, unit_price, discount_percent, tax_rate,
			                           discount_amount, tax_amount, total_amount, revenue_account_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, invoiceID, i+1, l.productID, l.productCode, l.description,
			l.quantity, l.unitPrice, l.discountPercent, l.taxRate,
			l.amounts.DiscountAmount, l.amounts.TaxAmount, l.amounts.Total, l.revenueAccountCode)
		if err != nil {
			return fmt.Errorf("insert invoice line %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *invoiceService) UpdateDraft(ctx context.Context, actor string, invoiceID int, input InvoiceInput) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		"SELECT status FROM invoices WHERE id = $1 FOR UPDATE", invoiceID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch invoice %d: %w", invoiceID, err)
	}
	if status != InvoiceDraft {
		return nil, &InvalidTransitionError{Entity: "invoice", Current: status, Action: "updated"}
	}

	if _, err := time.Parse("2006-01-02", input.InvoiceDate); err != nil {
		return nil, fmt.Errorf("invalid invoice date %q: %w", input.InvoiceDate, err)
	}
	if _, err := time.Parse("2006-01-02", input.DueDate); err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", input.DueDate, err)
	}

	lines, err := s.resolveSalesLinesTx(ctx, tx, input.Lines)
	if err != nil {
		return nil, err
	}
	amounts := make([]LineAmounts, len(lines))
	for i, l := range lines {
		amounts[i] = l.amounts
	}
	totals := SumLineAmounts(amounts)

	// The invoice number is stable: drafts keep their number across edits.
	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET invoice_date = $1, due_date = $2, subtotal = $3, discount_amount = $4,
		    tax_amount = $5, total_amount = $6, balance_due = $6, notes = NULLIF($7, ''),
		    updated_by = $8, updated_at = NOW()
		WHERE id = $9
	`, input.InvoiceDate, input.DueDate, totals.Subtotal, totals.DiscountAmount,
		totals.TaxAmount, totals.TotalAmount, input.Notes, actor, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("update invoice %d: %w", invoiceID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM invoice_items WHERE invoice_id = $1", invoiceID); err != nil {
		return nil, fmt.Errorf("clear invoice lines: %w", err)
	}
	if err := insertInvoiceItems(ctx, tx, invoiceID, lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit invoice update: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) SendInvoice(ctx context.Context, actor string, invoiceID int) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status        string
		invoiceNumber string
		invoiceDate   string
		customerName  string
		totalAmount   decimal.Decimal
		taxAmount     decimal.Decimal
	)
	err = tx.QueryRow(ctx, `
		SELECT i.status, i.invoice_number, i.invoice_date::text, c.name, i.total_amount, i.tax_amount
		FROM invoices i JOIN customers c ON c.id = i.customer_id
		WHERE i.id = $1
		FOR UPDATE OF i
	`, invoiceID).Scan(&status, &invoiceNumber, &invoiceDate, &customerName, &totalAmount, &taxAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch invoice %d: %w", invoiceID, err)
	}

	if !statemachine.ForInvoice(status).Can(statemachine.EventSend) {
		return nil, &InvalidTransitionError{Entity: "invoice", Current: status, Action: "sent"}
	}

	if totalAmount.Sign() <= 0 {
		return nil, fmt.Errorf("invoice %s has a non-positive total and cannot be sent", invoiceNumber)
	}

	arCode, err := s.rules.Resolve(ctx, RoleAR)
	if err != nil {
		return nil, err
	}

	entryLines := []EntryLineInput{{
		AccountCode: arCode,
		Debit:       totalAmount,
		Description: fmt.Sprintf("Invoice %s", invoiceNumber),
	}}

	// Revenue is credited per account so multi-line invoices split cleanly.
	rows, err := tx.Query(ctx, `
		SELECT revenue_account_code, SUM(total_amount - tax_amount)
		FROM invoice_items
		WHERE invoice_id = $1
		GROUP BY revenue_account_code
		ORDER BY revenue_account_code
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("group revenue for invoice %d: %w", invoiceID, err)
	}
	for rows.Next() {
		var code string
		var amount decimal.Decimal
		if err := rows.Scan(&code, &amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan revenue group: %w", err)
		}
		entryLines = append(entryLines, EntryLineInput{
			AccountCode: code,
			Credit:      amount,
			Description: fmt.Sprintf("Revenue - invoice %s", invoiceNumber),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue groups: %w", err)
	}

	if taxAmount.Sign() > 0 {
		taxCode, err := s.rules.Resolve(ctx, RoleTaxPayable)
		if err != nil {
			return nil, err
		}
		entryLines = append(entryLines, EntryLineInput{
			AccountCode: taxCode,
			Credit:      taxAmount,
			Description: fmt.Sprintf("Tax - invoice %s", invoiceNumber),
		})
	}

	entryID, err := s.ledger.CreateEntryTx(ctx, tx, actor, EntryInput{
		EntryDate:   invoiceDate,
		Description: fmt.Sprintf("Invoice %s - %s", invoiceNumber, customerName),
		Reference:   &DocumentRef{Kind: RefInvoice, ID: invoiceID},
		Lines:       entryLines,
	})
	if err != nil {
		return nil, fmt.Errorf("post invoice %s: %w", invoiceNumber, err)
	}
	if _, err := s.ledger.PostEntryTx(ctx, tx, actor, entryID); err != nil {
		return nil, fmt.Errorf("post invoice %s: %w", invoiceNumber, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET status = 'SENT', sent_at = NOW(), journal_entry_id = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, entryID, actor, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("mark invoice %d sent: %w", invoiceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit send: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) VoidInvoice(ctx context.Context, actor string, invoiceID int, reason string) (*Invoice, error) {
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
		"SELECT status, paid_amount, journal_entry_id FROM invoices WHERE id = $1 FOR UPDATE",
		invoiceID,
	).Scan(&status, &paidAmount, &journalEntryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch invoice %d: %w", invoiceID, err)
	}

	if !statemachine.ForInvoice(status).Can(statemachine.EventVoid) {
		return nil, &InvalidTransitionError{Entity: "invoice", Current: status, Action: "voided"}
	}
	if paidAmount.Sign() > 0 {
		return nil, fmt.Errorf("invoice %d has payments applied; deallocate them before voiding", invoiceID)
	}

	if journalEntryID != nil {
		if _, err := s.ledger.ReverseEntryTx(ctx, tx, actor, *journalEntryID, reason); err != nil {
			return nil, fmt.Errorf("reverse invoice entry: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET status = 'VOID', voided_at = NOW(), void_reason = $1, balance_due = 0,
		    updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, reason, actor, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("void invoice %d: %w", invoiceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit void: %w", err)
	}
	return s.GetInvoice(ctx, invoiceID)
}

// recomputeInvoiceStatusTx refreshes paid_amount, balance_due, and status
// from the allocation rows. Callers must hold the invoice row lock.
func recomputeInvoiceStatusTx(ctx context.Context, tx pgx.Tx, invoiceID int) error {
	var totalAmount, paidAmount decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT i.total_amount, COALESCE(SUM(pa.amount), 0)
		FROM invoices i
		LEFT JOIN payment_allocations pa ON pa.invoice_id = i.id
		WHERE i.id = $1
		GROUP BY i.total_amount
	`, invoiceID).Scan(&totalAmount, &paidAmount)
	if err != nil {
		return fmt.Errorf("sum allocations for invoice %d: %w", invoiceID, err)
	}

	balance := totalAmount.Sub(paidAmount)
	status := InvoiceSent
	switch {
	case balance.Sign() <= 0:
		status = InvoicePaid
	case paidAmount.Sign() > 0:
		status = InvoicePartial
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices
		SET paid_amount = $1, balance_due = $2, status = $3, updated_at = NOW()
		WHERE id = $4
	`, paidAmount, balance, status, invoiceID)
	if err != nil {
		return fmt.Errorf("update invoice %d status: %w", invoiceID, err)
	}
	return nil
}

const invoiceSelect = `
	SELECT i.id, i.invoice_number, i.customer_id, c.code, c.name, i.status,
	       i.invoice_date::text, i.due_date::text, i.currency, i.exchange_rate,
	       i.subtotal, i.discount_amount, i.tax_amount, i.total_amount,
	       i.paid_amount, i.balance_due, COALESCE(i.notes, ''), i.journal_entry_id,
	       i.sent_at, i.voided_at, COALESCE(i.void_reason, ''), i.created_by, i.created_at
	FROM invoices i
	JOIN customers c ON c.id = i.customer_id`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	inv := &Invoice{}
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.CustomerCode, &inv.CustomerName,
		&inv.Status, &inv.InvoiceDate, &inv.DueDate, &inv.Currency, &inv.ExchangeRate,
		&inv.Subtotal, &inv.DiscountAmount, &inv.TaxAmount, &inv.TotalAmount,
		&inv.PaidAmount, &inv.BalanceDue, &inv.Notes, &inv.JournalEntryID,
		&inv.SentAt, &inv.VoidedAt, &inv.VoidReason, &inv.CreatedBy, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.DisplayStatus = inv.displayStatus(time.Now())
	return inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, invoiceSelect+" WHERE i.id = $1", invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch invoice %d: %w", invoiceID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_id, line_number, product_id, product_code, description,
		       quantity, unit_price, discount_percent, tax_rate,
		       discount_amount, tax_amount, total_amount, revenue_account_code
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY line_number
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %d lines: %w", invoiceID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.LineNumber, &item.ProductID, &item.ProductCode,
			&item.Description, &item.Quantity, &item.UnitPrice, &item.DiscountPercent,
			&item.TaxRate, &item.DiscountAmount, &item.TaxAmount, &item.TotalAmount,
			&item.RevenueAccountCode,
		); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, nil
}

func (s *invoiceService) GetInvoices(ctx context.Context, status string) ([]Invoice, error) {
	q := invoiceSelect + " WHERE i.deleted_at IS NULL"
	var args []any
	if status != "" {
		q += " AND i.status = $1"
		args = append(args, status)
	}
	q += " ORDER BY i.id DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, nil
}
