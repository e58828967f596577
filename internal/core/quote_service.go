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

type quoteService struct {
	pool  *pgxpool.Pool
	rules PostingRules
}

// NewQuoteService constructs a QuoteService backed by PostgreSQL.
func NewQuoteService(pool *pgxpool.Pool, rules PostingRules) QuoteService {
	return &quoteService{pool: pool, rules: rules}
}

func (s *quoteService) CreateQuote(ctx context.Context, actor string, input QuoteInput) (*Quote, error) {
	quoteDate, err := time.Parse("2006-01-02", input.QuoteDate)
	if err != nil {
		return nil, fmt.Errorf("invalid quote date %q: %w", input.QuoteDate, err)
	}
	validUntil := input.ValidUntil
	if validUntil == "" {
		validUntil = quoteDate.AddDate(0, 0, 30).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", validUntil); err != nil {
		return nil, fmt.Errorf("invalid valid-until date %q: %w", validUntil, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var customerID int
	err = tx.QueryRow(ctx,
		"SELECT id FROM customers WHERE code = $1 AND deleted_at IS NULL", input.CustomerCode,
	).Scan(&customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %q: %w", input.CustomerCode, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch customer %q: %w", input.CustomerCode, err)
	}

	lines, err := resolveSalesLines(ctx, tx, s.rules, input.Lines)
	if err != nil {
		return nil, err
	}
	amounts := make([]LineAmounts, len(lines))
	for i, l := range lines {
		amounts[i] = l.amounts
	}
	totals := SumLineAmounts(amounts)

	quoteNumber, err := nextDocumentNumber(ctx, tx, PrefixQuote, quoteDate)
	if err != nil {
		return nil, err
	}

	var quoteID int
	err = tx.QueryRow(ctx, `
		INSERT INTO quotes (quote_number, customer_id, status, quote_date, valid_until,
		                    subtotal, discount_amount, tax_amount, total_amount, notes, created_by)
		VALUES ($1, $2, 'DRAFT', $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
		RETURNING id
	`, quoteNumber, customerID, input.QuoteDate, validUntil,
		totals.Subtotal, totals.DiscountAmount, totals.TaxAmount, totals.TotalAmount,
		input.Notes, actor).Scan(&quoteID)
	if err != nil {
		return nil, fmt.Errorf("insert quote: %w", err)
	}

	for i, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO quote_items (quote_id, line_number, product_id, product_code, description,
			                         quantity, unit_price, discount_percent, tax_rate,
			                         discount_amount, tax_amount, total_amount, revenue_account_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, quoteID, i+1, l.productID, l.productCode, l.description,
			l.quantity, l.unitPrice, l.discountPercent, l.taxRate,
			l.amounts.DiscountAmount, l.amounts.TaxAmount, l.amounts.Total, l.revenueAccountCode)
		if err != nil {
			return nil, fmt.Errorf("insert quote line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit quote: %w", err)
	}
	return s.GetQuote(ctx, quoteID)
}

// transition moves a quote through its machine, stamping the matching
// timestamp column. Shared by send, approve, and reject.
func (s *quoteService) transition(ctx context.Context, actor string, quoteID int, event, action, stampColumn string) (*Quote, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		"SELECT status FROM quotes WHERE id = $1 FOR UPDATE", quoteID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("quote %d: %w", quoteID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch quote %d: %w", quoteID, err)
	}

	m := statemachine.ForQuote(status)
	if !m.Can(event) {
		return nil, &InvalidTransitionError{Entity: "quote", Current: status, Action: action}
	}
	next, err := m.Fire(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("transition quote %d: %w", quoteID, err)
	}

	q := fmt.Sprintf(`
		UPDATE quotes SET status = $1, %s = NOW(), updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, stampColumn)
	if _, err := tx.Exec(ctx, q, next, actor, quoteID); err != nil {
		return nil, fmt.Errorf("update quote %d: %w", quoteID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit quote transition: %w", err)
	}
	return s.GetQuote(ctx, quoteID)
}

func (s *quoteService) SendQuote(ctx context.Context, actor string, quoteID int) (*Quote, error) {
	return s.transition(ctx, actor, quoteID, statemachine.EventSend, "sent", "sent_at")
}

func (s *quoteService) ApproveQuote(ctx context.Context, actor string, quoteID int) (*Quote, error) {
	return s.transition(ctx, actor, quoteID, statemachine.EventApprove, "approved", "approved_at")
}

func (s *quoteService) RejectQuote(ctx context.Context, actor string, quoteID int) (*Quote, error) {
	return s.transition(ctx, actor, quoteID, statemachine.EventReject, "rejected", "rejected_at")
}

func (s *quoteService) ConvertToInvoice(ctx context.Context, actor string, quoteID int, invoices InvoiceService) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status       string
		customerCode string
		notes        *string
	)
	err = tx.QueryRow(ctx, `
		SELECT q.status, c.code, q.notes
		FROM quotes q JOIN customers c ON c.id = q.customer_id
		WHERE q.id = $1
		FOR UPDATE OF q
	`, quoteID).Scan(&status, &customerCode, &notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("quote %d: %w", quoteID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch quote %d: %w", quoteID, err)
	}

	if !statemachine.ForQuote(status).Can(statemachine.EventConvert) {
		return nil, &InvalidTransitionError{Entity: "quote", Current: status, Action: "converted"}
	}

	// Lines copy verbatim: the invoice reprices nothing.
	rows, err := tx.Query(ctx, `
		SELECT product_code, description, quantity, unit_price, discount_percent, tax_rate
		FROM quote_items
		WHERE quote_id = $1
		ORDER BY line_number
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %d lines: %w", quoteID, err)
	}
	var lineInputs []LineInput
	for rows.Next() {
		var productCode *string
		var unitPrice decimal.Decimal
		var in LineInput
		if err := rows.Scan(&productCode, &in.Description, &in.Quantity, &unitPrice,
			&in.DiscountPercent, &in.TaxRate); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan quote line: %w", err)
		}
		in.UnitPrice = &unitPrice
		if productCode != nil {
			in.ProductCode = *productCode
		}
		lineInputs = append(lineInputs, in)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote lines: %w", err)
	}

	var quoteNotes string
	if notes != nil {
		quoteNotes = *notes
	}
	invoiceID, err := invoices.CreateInvoiceTx(ctx, tx, actor, InvoiceInput{
		CustomerCode: customerCode,
		InvoiceDate:  time.Now().Format("2006-01-02"),
		Notes:        quoteNotes,
		Lines:        lineInputs,
	})
	if err != nil {
		return nil, fmt.Errorf("convert quote %d: %w", quoteID, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE quotes SET status = 'CONVERTED', invoice_id = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, invoiceID, actor, quoteID)
	if err != nil {
		return nil, fmt.Errorf("mark quote %d converted: %w", quoteID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit conversion: %w", err)
	}
	return invoices.GetInvoice(ctx, invoiceID)
}

const quoteSelect = `
	SELECT q.id, q.quote_number, q.customer_id, c.code, c.name, q.status,
	       q.quote_date::text, q.valid_until::text,
	       q.subtotal, q.discount_amount, q.tax_amount, q.total_amount,
	       COALESCE(q.notes, ''), q.invoice_id, q.sent_at, q.approved_at, q.rejected_at,
	       q.created_by, q.created_at
	FROM quotes q
	JOIN customers c ON c.id = q.customer_id`

func scanQuote(row pgx.Row) (*Quote, error) {
	q := &Quote{}
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &q.CustomerID, &q.CustomerCode, &q.CustomerName, &q.Status,
		&q.QuoteDate, &q.ValidUntil,
		&q.Subtotal, &q.DiscountAmount, &q.TaxAmount, &q.TotalAmount,
		&q.Notes, &q.InvoiceID, &q.SentAt, &q.ApprovedAt, &q.RejectedAt,
		&q.CreatedBy, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.DisplayStatus = q.displayStatus(time.Now())
	return q, nil
}

func (s *quoteService) GetQuote(ctx context.Context, quoteID int) (*Quote, error) {
	q, err := scanQuote(s.pool.QueryRow(ctx, quoteSelect+" WHERE q.id = $1", quoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("quote %d: %w", quoteID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch quote %d: %w", quoteID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, quote_id, line_number, product_id, product_code, description,
		       quantity, unit_price, discount_percent, tax_rate,
		       discount_amount, tax_amount, total_amount, revenue_account_code
		FROM quote_items
		WHERE quote_id = $1
		ORDER BY line_number
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %d lines: %w", quoteID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item QuoteItem
		if err := rows.Scan(
			&item.ID, &item.QuoteID, &item.LineNumber, &item.ProductID, &item.ProductCode,
			&item.Description, &item.Quantity, &item.UnitPrice, &item.DiscountPercent,
			&item.TaxRate, &item.DiscountAmount, &item.TaxAmount, &item.TotalAmount,
			&item.RevenueAccountCode,
		); err != nil {
			return nil, fmt.Errorf("scan quote line: %w", err)
		}
		q.Items = append(q.Items, item)
	}
	return q, nil
}

func (s *quoteService) GetQuotes(ctx context.Context, status string) ([]Quote, error) {
	q := quoteSelect + " WHERE q.deleted_at IS NULL"
	var args []any
	if status != "" {
		q += " AND q.status = $1"
		args = append(args, status)
	}
	q += " ORDER BY q.id DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, *quote)
	}
	return quotes, nil
}
