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

// LedgerService creates, posts, and reverses journal entries and computes
// account balances. Mutations take an explicit actor for the audit trail.
type LedgerService interface {
	CreateEntry(ctx context.Context, actor string, input EntryInput) (*JournalEntry, error)
	// CreateEntryTx creates an entry inside the caller's transaction and
	// returns its id. Used by document services to keep GL postings atomic
	// with document state transitions.
	CreateEntryTx(ctx context.Context, tx pgx.Tx, actor string, input EntryInput) (int, error)
	// PostEntry is idempotent: posting an already-posted entry returns
	// (false, nil) rather than an error.
	PostEntry(ctx context.Context, actor string, entryID int) (bool, error)
	PostEntryTx(ctx context.Context, tx pgx.Tx, actor string, entryID int) (bool, error)
	// ReverseEntry creates and immediately posts a mirror entry with every
	// line's debit and credit swapped, then links the original to it.
	ReverseEntry(ctx context.Context, actor string, entryID int, reason string) (*JournalEntry, error)
	ReverseEntryTx(ctx context.Context, tx pgx.Tx, actor string, entryID int, reason string) (int, error)
	// AccountBalance sums posted lines for the account, optionally bounded
	// by entry_date <= asOf (YYYY-MM-DD, empty for no bound), signed by the
	// account's normal balance.
	AccountBalance(ctx context.Context, accountCode, asOf string) (decimal.Decimal, error)
	GetEntry(ctx context.Context, entryID int) (*JournalEntry, error)
	ListEntries(ctx context.Context, limit int) ([]JournalEntry, error)
}

// Ledger is the PostgreSQL-backed LedgerService.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// validateEntry enforces structural and balance rules before any write.
func validateEntry(input EntryInput) error {
	if _, err := time.Parse("2006-01-02", input.EntryDate); err != nil {
		return fmt.Errorf("invalid entry date %q: %w", input.EntryDate, err)
	}
	if len(input.Lines) < 2 {
		return errors.New("journal entry must have at least 2 lines")
	}

	totalDebits := decimal.Zero
	totalCredits := decimal.Zero
	for i, line := range input.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("line %d: account code is required", i+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("line %d: amounts cannot be negative", i+1)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return fmt.Errorf("line %d: debit or credit amount is required", i+1)
		}
		totalDebits = totalDebits.Add(line.Debit.Round(2))
		totalCredits = totalCredits.Add(line.Credit.Round(2))
	}

	if !withinTolerance(totalDebits, totalCredits) {
		return &UnbalancedEntryError{Debits: totalDebits, Credits: totalCredits}
	}
	return nil
}

func (l *Ledger) CreateEntry(ctx context.Context, actor string, input EntryInput) (*JournalEntry, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	entryID, err := l.CreateEntryTx(ctx, tx, actor, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit journal entry: %w", err)
	}
	return l.GetEntry(ctx, entryID)
}

func (l *Ledger) CreateEntryTx(ctx context.Context, tx pgx.Tx, actor string, input EntryInput) (int, error) {
	// Balance check first: an unbalanced entry is never written, not even partially.
	if err := validateEntry(input); err != nil {
		return 0, err
	}

	entryDate, _ := time.Parse("2006-01-02", input.EntryDate)
	entryNumber, err := nextDocumentNumber(ctx, tx, PrefixJournalEntry, entryDate)
	if err != nil {
		return 0, err
	}

	var refKind, refID any
	if input.Reference != nil {
		refKind = string(input.Reference.Kind)
		refID = input.Reference.ID
	}

	var entryID int
	err = tx.QueryRow(ctx, `
		INSERT INTO journal_entries (entry_number, entry_date, description, reference_kind, reference_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, entryNumber, input.EntryDate, input.Description, refKind, refID, actor).Scan(&entryID)
	if err != nil {
		return 0, fmt.Errorf("insert journal entry: %w", err)
	}

	for i, line := range input.Lines {
		accountID, err := resolveAccountID(ctx, tx, line.AccountCode)
		if err != nil {
			return 0, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO journal_entry_lines (entry_id, line_number, account_id, debit_amount, credit_amount, description)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, entryID, i+1, accountID, line.Debit.Round(2), line.Credit.Round(2), line.Description)
		if err != nil {
			return 0, fmt.Errorf("insert journal line %d: %w", i+1, err)
		}
	}

	return entryID, nil
}

// resolveAccountID maps an account code to its id, excluding tombstoned accounts.
func resolveAccountID(ctx context.Context, tx pgx.Tx, code string) (int, error) {
	var id int
	err := tx.QueryRow(ctx,
		"SELECT id FROM accounts WHERE code = $1 AND deleted_at IS NULL", code,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("account code %s: %w", code, ErrNotFound)
		}
		return 0, fmt.Errorf("resolve account %s: %w", code, err)
	}
	return id, nil
}

func (l *Ledger) PostEntry(ctx context.Context, actor string, entryID int) (bool, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	posted, err := l.PostEntryTx(ctx, tx, actor, entryID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit posting: %w", err)
	}
	return posted, nil
}

func (l *Ledger) PostEntryTx(ctx context.Context, tx pgx.Tx, actor string, entryID int) (bool, error) {
	var isPosted bool
	err := tx.QueryRow(ctx,
		"SELECT is_posted FROM journal_entries WHERE id = $1 FOR UPDATE", entryID,
	).Scan(&isPosted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("journal entry %d: %w", entryID, ErrNotFound)
		}
		return false, fmt.Errorf("fetch journal entry %d: %w", entryID, err)
	}

	// Idempotent: posting twice is a defined no-op.
	if isPosted {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE journal_entries
		SET is_posted = true, posted_at = NOW(), posted_by = $1, is_locked = true
		WHERE id = $2
	`, actor, entryID)
	if err != nil {
		return false, fmt.Errorf("post journal entry %d: %w", entryID, err)
	}
	return true, nil
}

func (l *Ledger) ReverseEntry(ctx context.Context, actor string, entryID int, reason string) (*JournalEntry, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reversalID, err := l.ReverseEntryTx(ctx, tx, actor, entryID, reason)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reversal: %w", err)
	}
	return l.GetEntry(ctx, reversalID)
}

func (l *Ledger) ReverseEntryTx(ctx context.Context, tx pgx.Tx, actor string, entryID int, reason string) (int, error) {
	var (
		entryDate    string
		description  string
		isPosted     bool
		reversedByID *int
		refKind      *string
		refID        *int
	)
	err := tx.QueryRow(ctx, `
		SELECT entry_date::text, description, is_posted, reversed_by_id, reference_kind, reference_id
		FROM journal_entries WHERE id = $1 FOR UPDATE
	`, entryID).Scan(&entryDate, &description, &isPosted, &reversedByID, &refKind, &refID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("journal entry %d: %w", entryID, ErrNotFound)
		}
		return 0, fmt.Errorf("fetch journal entry %d: %w", entryID, err)
	}

	if !isPosted {
		return 0, &InvalidTransitionError{Entity: "journal entry", Current: "unposted", Action: "reversed"}
	}
	if reversedByID != nil {
		return 0, fmt.Errorf("journal entry %d is already reversed", entryID)
	}

	reversalDesc := fmt.Sprintf("Reversal: %s", description)
	if reason != "" {
		reversalDesc = fmt.Sprintf("Reversal: %s (%s)", description, reason)
	}

	rows, err := tx.Query(ctx, `
		SELECT account_id, debit_amount, credit_amount, description
		FROM journal_entry_lines
		WHERE entry_id = $1
		ORDER BY line_number
	`, entryID)
	if err != nil {
		return 0, fmt.Errorf("fetch lines for entry %d: %w", entryID, err)
	}

	type lineData struct {
		accountID   int
		debit       decimal.Decimal
		credit      decimal.Decimal
		description string
	}
	var lines []lineData
	for rows.Next() {
		var ld lineData
		if err := rows.Scan(&ld.accountID, &ld.debit, &ld.credit, &ld.description); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, ld)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate lines: %w", err)
	}

	parsedDate, _ := time.Parse("2006-01-02", entryDate)
	reversalNumber, err := nextDocumentNumber(ctx, tx, PrefixJournalEntry, parsedDate)
	if err != nil {
		return 0, err
	}

	// The reversal is posted on creation: it exists only to undo a posted entry.
	var reversalID int
	err = tx.QueryRow(ctx, `
		INSERT INTO journal_entries (entry_number, entry_date, description, reference_kind, reference_id,
		                             is_posted, posted_at, posted_by, is_locked, created_by)
		VALUES ($1, $2, $3, $4, $5, true, NOW(), $6, true, $6)
		RETURNING id
	`, reversalNumber, entryDate, reversalDesc, refKind, refID, actor).Scan(&reversalID)
	if err != nil {
		return 0, fmt.Errorf("insert reversal entry: %w", err)
	}

	// Swap debit and credit on every line.
	for i, line := range lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO journal_entry_lines (entry_id, line_number, account_id, debit_amount, credit_amount, description)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, reversalID, i+1, line.accountID, line.credit, line.debit, line.description)
		if err != nil {
			return 0, fmt.Errorf("insert reversal line %d: %w", i+1, err)
		}
	}

	_, err = tx.Exec(ctx,
		"UPDATE journal_entries SET reversed_by_id = $1 WHERE id = $2", reversalID, entryID,
	)
	if err != nil {
		return 0, fmt.Errorf("link reversal to entry %d: %w", entryID, err)
	}

	return reversalID, nil
}

func (l *Ledger) AccountBalance(ctx context.Context, accountCode, asOf string) (decimal.Decimal, error) {
	var accountType AccountType
	err := l.pool.QueryRow(ctx,
		"SELECT type FROM accounts WHERE code = $1 AND deleted_at IS NULL", accountCode,
	).Scan(&accountType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("account code %s: %w", accountCode, ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("resolve account %s: %w", accountCode, err)
	}

	q := `
		SELECT COALESCE(SUM(jel.debit_amount), 0), COALESCE(SUM(jel.credit_amount), 0)
		FROM journal_entry_lines jel
		JOIN journal_entries je ON je.id = jel.entry_id
		JOIN accounts a         ON a.id  = jel.account_id
		WHERE a.code = $1
		  AND je.is_posted = true`
	args := []any{accountCode}
	if asOf != "" {
		args = append(args, asOf)
		q += fmt.Sprintf(" AND je.entry_date <= $%d::date", len(args))
	}

	var debits, credits decimal.Decimal
	if err := l.pool.QueryRow(ctx, q, args...).Scan(&debits, &credits); err != nil {
		return decimal.Zero, fmt.Errorf("sum balances for account %s: %w", accountCode, err)
	}

	if accountType.NormalBalance() == "debit" {
		return debits.Sub(credits), nil
	}
	return credits.Sub(debits), nil
}

func (l *Ledger) GetEntry(ctx context.Context, entryID int) (*JournalEntry, error) {
	e := &JournalEntry{}
	var refKind *string
	var refID *int
	err := l.pool.QueryRow(ctx, `
		SELECT id, entry_number, entry_date::text, description, reference_kind, reference_id,
		       is_posted, posted_at, posted_by, is_locked, reversed_by_id, created_by, created_at
		FROM journal_entries
		WHERE id = $1
	`, entryID).Scan(
		&e.ID, &e.EntryNumber, &e.EntryDate, &e.Description, &refKind, &refID,
		&e.IsPosted, &e.PostedAt, &e.PostedBy, &e.IsLocked, &e.ReversedByID, &e.CreatedBy, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("journal entry %d: %w", entryID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch journal entry %d: %w", entryID, err)
	}
	if refKind != nil && refID != nil {
		e.Reference = &DocumentRef{Kind: ReferenceKind(*refKind), ID: *refID}
	}

	rows, err := l.pool.Query(ctx, `
		SELECT jel.id, jel.entry_id, jel.line_number, jel.account_id, a.code,
		       jel.debit_amount, jel.credit_amount, jel.description
		FROM journal_entry_lines jel
		JOIN accounts a ON a.id = jel.account_id
		WHERE jel.entry_id = $1
		ORDER BY jel.line_number
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("fetch lines for entry %d: %w", entryID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line JournalEntryLine
		if err := rows.Scan(
			&line.ID, &line.EntryID, &line.LineNumber, &line.AccountID, &line.AccountCode,
			&line.Debit, &line.Credit, &line.Description,
		); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		e.Lines = append(e.Lines, line)
	}
	return e, nil
}

func (l *Ledger) ListEntries(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.pool.Query(ctx, `
		SELECT id, entry_number, entry_date::text, description, reference_kind, reference_id,
		       is_posted, posted_at, posted_by, is_locked, reversed_by_id, created_by, created_at
		FROM journal_entries
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var refKind *string
		var refID *int
		if err := rows.Scan(
			&e.ID, &e.EntryNumber, &e.EntryDate, &e.Description, &refKind, &refID,
			&e.IsPosted, &e.PostedAt, &e.PostedBy, &e.IsLocked, &e.ReversedByID, &e.CreatedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if refKind != nil && refID != nil {
			e.Reference = &DocumentRef{Kind: ReferenceKind(*refKind), ID: *refID}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
