package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type paymentService struct {
	pool   *pgxpool.Pool
	rules  PostingRules
	ledger LedgerService
}

// NewPaymentService constructs a PaymentService backed by PostgreSQL.
func NewPaymentService(pool *pgxpool.Pool, rules PostingRules, ledger LedgerService) PaymentService {
	return &paymentService{pool: pool, rules: rules, ledger: ledger}
}

func (s *paymentService) CreatePayment(ctx context.Context, actor string, input PaymentInput) (*Payment, error) {
	if input.Amount.Sign() <= 0 {
		return nil, errors.New("payment amount must be positive")
	}
	paymentDate, err := time.Parse("2006-01-02", input.PaymentDate)
	if err != nil {
		return nil, fmt.Errorf("invalid payment date %q: %w", input.PaymentDate, err)
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

	bankCode := input.BankAccountCode
	if bankCode == "" {
		bankCode, err = s.rules.Resolve(ctx, RoleBank)
		if err != nil {
			return nil, err
		}
	}
	arCode, err := s.rules.Resolve(ctx, RoleAR)
	if err != nil {
		return nil, err
	}

	paymentNumber, err := nextDocumentNumber(ctx, tx, PrefixPayment, paymentDate)
	if err != nil {
		return nil, err
	}

	var paymentID int
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (payment_number, customer_id, payment_date, amount, allocated_amount,
		                      method, reference, bank_account_code, notes, created_by)
		VALUES ($1, $2, $3, $4, 0, NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), $9)
		RETURNING id
	`, paymentNumber, customerID, input.PaymentDate, input.Amount,
		input.Method, input.Reference, bankCode, input.Notes, actor).Scan(&paymentID)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	// Cash recognition does not wait for allocation: the receipt posts now,
	// allocation only redistributes it across invoices.
	entryID, err := s.ledger.CreateEntryTx(ctx, tx, actor, EntryInput{
		EntryDate:   input.PaymentDate,
		Description: fmt.Sprintf("Payment %s received", paymentNumber),
		Reference:   &DocumentRef{Kind: RefPayment, ID: paymentID},
		Lines: []EntryLineInput{
			{AccountCode: bankCode, Debit: input.Amount, Description: fmt.Sprintf("Payment %s", paymentNumber)},
			{AccountCode: arCode, Credit: input.Amount, Description: fmt.Sprintf("Payment %s", paymentNumber)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("post payment %s: %w", paymentNumber, err)
	}
	if _, err := s.ledger.PostEntryTx(ctx, tx, actor, entryID); err != nil {
		return nil, fmt.Errorf("post payment %s: %w", paymentNumber, err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE payments SET journal_entry_id = $1 WHERE id = $2", entryID, paymentID,
	); err != nil {
		return nil, fmt.Errorf("link payment entry: %w", err)
	}

	if input.AutoAllocate {
		if err := s.autoAllocateTx(ctx, tx, actor, paymentID, customerID, input.Amount); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}
	return s.GetPayment(ctx, paymentID)
}

// autoAllocateTx spreads the payment across the customer's open invoices,
// oldest due date first, until the amount runs out.
func (s *paymentService) autoAllocateTx(ctx context.Context, tx pgx.Tx, actor string, paymentID, customerID int, amount decimal.Decimal) error {
	rows, err := tx.Query(ctx, `
		SELECT id, balance_due
		FROM invoices
		WHERE customer_id = $1 AND status IN ('SENT', 'PARTIAL') AND balance_due > 0
		  AND deleted_at IS NULL
		ORDER BY due_date, invoice_date, id
		FOR UPDATE
	`, customerID)
	if err != nil {
		return fmt.Errorf("fetch open invoices: %w", err)
	}

	type openInvoice struct {
		id      int
		balance decimal.Decimal
	}
	var open []openInvoice
	for rows.Next() {
		var inv openInvoice
		if err := rows.Scan(&inv.id, &inv.balance); err != nil {
			rows.Close()
			return fmt.Errorf("scan open invoice: %w", err)
		}
		open = append(open, inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate open invoices: %w", err)
	}

	remaining := amount
	for _, inv := range open {
		if remaining.Sign() <= 0 {
			break
		}
		alloc := decimal.Min(remaining, inv.balance)
		if err := s.allocateTx(ctx, tx, actor, paymentID, inv.id, alloc); err != nil {
			return err
		}
		remaining = remaining.Sub(alloc)
	}
	return nil
}

// allocateTx records the allocation and refreshes both sides. Callers must
// hold locks on the payment and invoice rows and have verified the limits.
func (s *paymentService) allocateTx(ctx context.Context, tx pgx.Tx, actor string, paymentID, invoiceID int, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO payment_allocations (payment_id, invoice_id, amount, allocated_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (payment_id, invoice_id)
		DO UPDATE SET amount = payment_allocations.amount + EXCLUDED.amount,
		              allocated_at = NOW(), allocated_by = EXCLUDED.allocated_by
	`, paymentID, invoiceID, amount, actor)
	if err != nil {
		return fmt.Errorf("record allocation: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE payments SET allocated_amount = allocated_amount + $1 WHERE id = $2",
		amount, paymentID,
	)
	if err != nil {
		return fmt.Errorf("update payment allocated amount: %w", err)
	}

	return recomputeInvoiceStatusTx(ctx, tx, invoiceID)
}

func (s *paymentService) Allocate(ctx context.Context, actor string, paymentID, invoiceID int, amount decimal.Decimal) (*Payment, error) {
	if amount.Sign() <= 0 {
		return nil, errors.New("allocation amount must be positive")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		paymentAmount     decimal.Decimal
		allocatedAmount   decimal.Decimal
		paymentCustomerID int
	)
	err = tx.QueryRow(ctx,
		"SELECT amount, allocated_amount, customer_id FROM payments WHERE id = $1 FOR UPDATE",
		paymentID,
	).Scan(&paymentAmount, &allocatedAmount, &paymentCustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch payment %d: %w", paymentID, err)
	}

	var (
		invoiceStatus     string
		balanceDue        decimal.Decimal
		invoiceCustomerID int
	)
	err = tx.QueryRow(ctx,
		"SELECT status, balance_due, customer_id FROM invoices WHERE id = $1 FOR UPDATE",
		invoiceID,
	).Scan(&invoiceStatus, &balanceDue, &invoiceCustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch invoice %d: %w", invoiceID, err)
	}

	if invoiceCustomerID != paymentCustomerID {
		return nil, fmt.Errorf("invoice %d belongs to a different customer", invoiceID)
	}
	if invoiceStatus != InvoiceSent && invoiceStatus != InvoicePartial {
		return nil, &InvalidTransitionError{Entity: "invoice", Current: invoiceStatus, Action: "paid"}
	}

	unallocated := paymentAmount.Sub(allocatedAmount)
	if amount.GreaterThan(unallocated) {
		return nil, &InsufficientError{Resource: "unallocated payment amount", Requested: amount, Available: unallocated}
	}
	if amount.GreaterThan(balanceDue) {
		return nil, &InsufficientError{Resource: "invoice balance due", Requested: amount, Available: balanceDue}
	}

	if err := s.allocateTx(ctx, tx, actor, paymentID, invoiceID, amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit allocation: %w", err)
	}
	return s.GetPayment(ctx, paymentID)
}

func (s *paymentService) AutoAllocate(ctx context.Context, actor string, paymentID int) (*Payment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		customerID      int
		amount          decimal.Decimal
		allocatedAmount decimal.Decimal
	)
	err = tx.QueryRow(ctx,
		"SELECT customer_id, amount, allocated_amount FROM payments WHERE id = $1 FOR UPDATE",
		paymentID,
	).Scan(&customerID, &amount, &allocatedAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch payment %d: %w", paymentID, err)
	}

	unallocated := amount.Sub(allocatedAmount)
	if unallocated.Sign() > 0 {
		if err := s.autoAllocateTx(ctx, tx, actor, paymentID, customerID, unallocated); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit auto-allocation: %w", err)
	}
	return s.GetPayment(ctx, paymentID)
}

func (s *paymentService) Deallocate(ctx context.Context, actor string, paymentID, invoiceID int) (*Payment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	err = tx.QueryRow(ctx,
		"SELECT 1 FROM payments WHERE id = $1 FOR UPDATE", paymentID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch payment %d: %w", paymentID, err)
	}

	var released decimal.Decimal
	err = tx.QueryRow(ctx, `
		DELETE FROM payment_allocations
		WHERE payment_id = $1 AND invoice_id = $2
		RETURNING amount
	`, paymentID, invoiceID).Scan(&released)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no allocation between payment %d and invoice %d: %w", paymentID, invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("remove allocation: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE payments
		SET allocated_amount = allocated_amount - $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, released, actor, paymentID)
	if err != nil {
		return nil, fmt.Errorf("update payment allocated amount: %w", err)
	}

	if err := recomputeInvoiceStatusTx(ctx, tx, invoiceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit deallocation: %w", err)
	}
	return s.GetPayment(ctx, paymentID)
}

const paymentSelect = `
	SELECT p.id, p.payment_number, p.customer_id, c.code, c.name,
	       p.payment_date::text, p.amount, p.allocated_amount,
	       COALESCE(p.method, ''), COALESCE(p.reference, ''), p.bank_account_code,
	       p.journal_entry_id, COALESCE(p.notes, ''), p.created_by, p.created_at
	FROM payments p
	JOIN customers c ON c.id = p.customer_id`

func scanPayment(row pgx.Row) (*Payment, error) {
	p := &Payment{}
	err := row.Scan(
		&p.ID, &p.PaymentNumber, &p.CustomerID, &p.CustomerCode, &p.CustomerName,
		&p.PaymentDate, &p.Amount, &p.AllocatedAmount,
		&p.Method, &p.Reference, &p.BankAccountCode,
		&p.JournalEntryID, &p.Notes, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.UnallocatedAmount = p.Amount.Sub(p.AllocatedAmount)
	return p, nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID int) (*Payment, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx, paymentSelect+" WHERE p.id = $1", paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch payment %d: %w", paymentID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT pa.id, pa.payment_id, pa.invoice_id, i.invoice_number, pa.amount,
		       pa.allocated_at, pa.allocated_by
		FROM payment_allocations pa
		JOIN invoices i ON i.id = pa.invoice_id
		WHERE pa.payment_id = $1
		ORDER BY pa.id
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch allocations for payment %d: %w", paymentID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a PaymentAllocation
		if err := rows.Scan(
			&a.ID, &a.PaymentID, &a.InvoiceID, &a.InvoiceNumber, &a.Amount,
			&a.AllocatedAt, &a.AllocatedBy,
		); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		p.Allocations = append(p.Allocations, a)
	}
	return p, nil
}

func (s *paymentService) GetPayments(ctx context.Context, customerCode string) ([]Payment, error) {
	q := paymentSelect + " WHERE p.deleted_at IS NULL"
	var args []any
	if customerCode != "" {
		q += " AND c.code = $1"
		args = append(args, customerCode)
	}
	q += " ORDER BY p.id DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, nil
}
