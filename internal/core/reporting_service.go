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

// ── Report types ──────────────────────────────────────────────────────────────

// TrialBalanceLine is one account's net position, expressed in a single
// column: net debits land in Debit, net credits in Credit.
type TrialBalanceLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Type   AccountType     `json:"type"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// TrialBalanceReport lists every account with activity. A correctly posted
// ledger always balances; IsBalanced failing indicates data corruption.
type TrialBalanceReport struct {
	AsOfDate     string             `json:"as_of_date"`
	Lines        []TrialBalanceLine `json:"lines"`
	TotalDebits  decimal.Decimal    `json:"total_debits"`
	TotalCredits decimal.Decimal    `json:"total_credits"`
	IsBalanced   bool               `json:"is_balanced"`
}

// AccountLine is a single account entry in a P&L or Balance Sheet report.
// Balance carries the sign convention of its section: revenue and credit-side
// balances positive when in their normal position.
type AccountLine struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// PLReport is the Profit & Loss report over a date range.
type PLReport struct {
	FromDate      string          `json:"from_date"`
	ToDate        string          `json:"to_date"`
	Revenue       []AccountLine   `json:"revenue"`
	Expenses      []AccountLine   `json:"expenses"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetIncome     decimal.Decimal `json:"net_income"`
}

// BSReport is the Balance Sheet as of a date. RetainedEarnings folds the
// cumulative P&L into equity so the sheet balances without period closing.
type BSReport struct {
	AsOfDate         string          `json:"as_of_date"`
	Assets           []AccountLine   `json:"assets"`
	Liabilities      []AccountLine   `json:"liabilities"`
	Equity           []AccountLine   `json:"equity"`
	RetainedEarnings decimal.Decimal `json:"retained_earnings"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	IsBalanced       bool            `json:"is_balanced"`
}

// ARAgingRow buckets one customer's open invoice balances by days overdue.
type ARAgingRow struct {
	CustomerCode string          `json:"customer_code"`
	CustomerName string          `json:"customer_name"`
	Current      decimal.Decimal `json:"current"`
	Days1to30    decimal.Decimal `json:"days_1_30"`
	Days31to60   decimal.Decimal `json:"days_31_60"`
	Days61to90   decimal.Decimal `json:"days_61_90"`
	Over90       decimal.Decimal `json:"over_90"`
	Total        decimal.Decimal `json:"total"`
}

// ARAgingReport is the receivables aging summary.
type ARAgingReport struct {
	AsOfDate string          `json:"as_of_date"`
	Rows     []ARAgingRow    `json:"rows"`
	Total    decimal.Decimal `json:"total"`
}

// StatementLine is one row in a customer statement: an invoice (charge)
// or a payment (credit), with the running balance after it.
type StatementLine struct {
	Date           string          `json:"date"`
	DocumentNumber string          `json:"document_number"`
	Description    string          `json:"description"`
	Charge         decimal.Decimal `json:"charge"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// CustomerStatementReport is a customer's activity over a date range with
// opening and closing balances.
type CustomerStatementReport struct {
	CustomerCode   string          `json:"customer_code"`
	CustomerName   string          `json:"customer_name"`
	FromDate       string          `json:"from_date"`
	ToDate         string          `json:"to_date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Lines          []StatementLine `json:"lines"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only reporting queries. All ledger-derived
// reports count posted entries only; drafts and voids never appear.
type ReportingService interface {
	// TrialBalance lists net balances per account as of the given date
	// (empty for all time), omitting accounts with no activity.
	TrialBalance(ctx context.Context, asOf string) (*TrialBalanceReport, error)

	// ProfitAndLoss reports revenue and expense activity between two dates
	// inclusive. Either bound may be empty.
	ProfitAndLoss(ctx context.Context, fromDate, toDate string) (*PLReport, error)

	// BalanceSheet reports asset, liability, and equity positions as of the
	// given date, with cumulative net income folded into retained earnings.
	BalanceSheet(ctx context.Context, asOf string) (*BSReport, error)

	// ARAging buckets open invoice balances by days past due:
	// current, 1-30, 31-60, 61-90, and over 90.
	ARAging(ctx context.Context, asOf string) (*ARAgingReport, error)

	// CustomerStatement lists a customer's invoices and payments over a date
	// range with a running balance from the opening position.
	CustomerStatement(ctx context.Context, customerCode, fromDate, toDate string) (*CustomerStatementReport, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	pool *pgxpool.Pool
}

// NewReportingService constructs a ReportingService backed by the given pool.
func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

// accountActivity sums posted debits and credits per account, optionally
// bounded by entry date on either side.
func (s *reportingService) accountActivity(ctx context.Context, types []string, fromDate, toDate string) (pgx.Rows, error) {
	q := `
		SELECT a.code, a.name, a.type,
		       COALESCE(SUM(jel.debit_amount), 0)  AS debits,
		       COALESCE(SUM(jel.credit_amount), 0) AS credits
		FROM accounts a
		JOIN journal_entry_lines jel ON jel.account_id = a.id
		JOIN journal_entries je      ON je.id = jel.entry_id
		WHERE je.is_posted = true
		  AND a.deleted_at IS NULL
		  AND a.type = ANY($1)`
	args := []any{types}
	if fromDate != "" {
		args = append(args, fromDate)
		q += fmt.Sprintf(" AND je.entry_date >= $%d::date", len(args))
	}
	if toDate != "" {
		args = append(args, toDate)
		q += fmt.Sprintf(" AND je.entry_date <= $%d::date", len(args))
	}
	q += " GROUP BY a.code, a.name, a.type ORDER BY a.type, a.code"

	return s.pool.Query(ctx, q, args...)
}

func (s *reportingService) TrialBalance(ctx context.Context, asOf string) (*TrialBalanceReport, error) {
	rows, err := s.accountActivity(ctx, []string{"asset", "liability", "equity", "revenue", "expense"}, "", asOf)
	if err != nil {
		return nil, fmt.Errorf("trial balance query: %w", err)
	}
	defer rows.Close()

	report := &TrialBalanceReport{AsOfDate: asOf}
	for rows.Next() {
		var (
			line    TrialBalanceLine
			debits  decimal.Decimal
			credits decimal.Decimal
		)
		if err := rows.Scan(&line.Code, &line.Name, &line.Type, &debits, &credits); err != nil {
			return nil, fmt.Errorf("scan trial balance line: %w", err)
		}
		net := debits.Sub(credits)
		if net.IsZero() {
			continue
		}
		if net.Sign() > 0 {
			line.Debit = net
		} else {
			line.Credit = net.Neg()
		}
		report.Lines = append(report.Lines, line)
		report.TotalDebits = report.TotalDebits.Add(line.Debit)
		report.TotalCredits = report.TotalCredits.Add(line.Credit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trial balance: %w", err)
	}

	report.IsBalanced = withinTolerance(report.TotalDebits, report.TotalCredits)
	return report, nil
}

func (s *reportingService) ProfitAndLoss(ctx context.Context, fromDate, toDate string) (*PLReport, error) {
	rows, err := s.accountActivity(ctx, []string{"revenue", "expense"}, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("profit and loss query: %w", err)
	}
	defer rows.Close()

	report := &PLReport{FromDate: fromDate, ToDate: toDate}
	for rows.Next() {
		var (
			code, name      string
			accountType     AccountType
			debits, credits decimal.Decimal
		)
		if err := rows.Scan(&code, &name, &accountType, &debits, &credits); err != nil {
			return nil, fmt.Errorf("scan P&L line: %w", err)
		}
		switch accountType {
		case Revenue:
			balance := credits.Sub(debits)
			report.Revenue = append(report.Revenue, AccountLine{Code: code, Name: name, Balance: balance})
			report.TotalRevenue = report.TotalRevenue.Add(balance)
		case Expense:
			balance := debits.Sub(credits)
			report.Expenses = append(report.Expenses, AccountLine{Code: code, Name: name, Balance: balance})
			report.TotalExpenses = report.TotalExpenses.Add(balance)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate P&L: %w", err)
	}

	report.NetIncome = report.TotalRevenue.Sub(report.TotalExpenses)
	return report, nil
}

func (s *reportingService) BalanceSheet(ctx context.Context, asOf string) (*BSReport, error) {
	if asOf == "" {
		asOf = time.Now().Format("2006-01-02")
	}

	rows, err := s.accountActivity(ctx, []string{"asset", "liability", "equity"}, "", asOf)
	if err != nil {
		return nil, fmt.Errorf("balance sheet query: %w", err)
	}
	defer rows.Close()

	report := &BSReport{AsOfDate: asOf}
	for rows.Next() {
		var (
			code, name      string
			accountType     AccountType
			debits, credits decimal.Decimal
		)
		if err := rows.Scan(&code, &name, &accountType, &debits, &credits); err != nil {
			return nil, fmt.Errorf("scan balance sheet line: %w", err)
		}
		switch accountType {
		case Asset:
			balance := debits.Sub(credits)
			report.Assets = append(report.Assets, AccountLine{Code: code, Name: name, Balance: balance})
			report.TotalAssets = report.TotalAssets.Add(balance)
		case Liability:
			balance := credits.Sub(debits)
			report.Liabilities = append(report.Liabilities, AccountLine{Code: code, Name: name, Balance: balance})
			report.TotalLiabilities = report.TotalLiabilities.Add(balance)
		case Equity:
			balance := credits.Sub(debits)
			report.Equity = append(report.Equity, AccountLine{Code: code, Name: name, Balance: balance})
			report.TotalEquity = report.TotalEquity.Add(balance)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance sheet: %w", err)
	}

	// Unclosed income sits in retained earnings so the equation holds
	// without period-close entries.
	pl, err := s.ProfitAndLoss(ctx, "", asOf)
	if err != nil {
		return nil, err
	}
	report.RetainedEarnings = pl.NetIncome
	report.TotalEquity = report.TotalEquity.Add(report.RetainedEarnings)

	report.IsBalanced = withinTolerance(report.TotalAssets, report.TotalLiabilities.Add(report.TotalEquity))
	return report, nil
}

func (s *reportingService) ARAging(ctx context.Context, asOf string) (*ARAgingReport, error) {
	if asOf == "" {
		asOf = time.Now().Format("2006-01-02")
	}
	asOfDate, err := time.Parse("2006-01-02", asOf)
	if err != nil {
		return nil, fmt.Errorf("invalid as-of date %q: %w", asOf, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.code, c.name, i.due_date::text, i.balance_due
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.status IN ('SENT', 'PARTIAL')
		  AND i.balance_due > 0
		  AND i.deleted_at IS NULL
		  AND i.invoice_date <= $1::date
		ORDER BY c.code, i.due_date
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("aging query: %w", err)
	}
	defer rows.Close()

	report := &ARAgingReport{AsOfDate: asOf}
	byCustomer := map[string]*ARAgingRow{}
	var order []string
	for rows.Next() {
		var code, name, dueDate string
		var balance decimal.Decimal
		if err := rows.Scan(&code, &name, &dueDate, &balance); err != nil {
			return nil, fmt.Errorf("scan aging row: %w", err)
		}

		row, ok := byCustomer[code]
		if !ok {
			row = &ARAgingRow{CustomerCode: code, CustomerName: name}
			byCustomer[code] = row
			order = append(order, code)
		}

		due, err := time.Parse("2006-01-02", dueDate)
		if err != nil {
			return nil, fmt.Errorf("parse due date %q: %w", dueDate, err)
		}
		daysPast := int(asOfDate.Sub(due).Hours() / 24)
		switch {
		case daysPast <= 0:
			row.Current = row.Current.Add(balance)
		case daysPast <= 30:
			row.Days1to30 = row.Days1to30.Add(balance)
		case daysPast <= 60:
			row.Days31to60 = row.Days31to60.Add(balance)
		case daysPast <= 90:
			row.Days61to90 = row.Days61to90.Add(balance)
		default:
			row.Over90 = row.Over90.Add(balance)
		}
		row.Total = row.Total.Add(balance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aging rows: %w", err)
	}

	for _, code := range order {
		row := byCustomer[code]
		report.Rows = append(report.Rows, *row)
		report.Total = report.Total.Add(row.Total)
	}
	return report, nil
}

func (s *reportingService) CustomerStatement(ctx context.Context, customerCode, fromDate, toDate string) (*CustomerStatementReport, error) {
	var customerID int
	var customerName string
	err := s.pool.QueryRow(ctx,
		"SELECT id, name FROM customers WHERE code = $1 AND deleted_at IS NULL", customerCode,
	).Scan(&customerID, &customerName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %q: %w", customerCode, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch customer %q: %w", customerCode, err)
	}

	report := &CustomerStatementReport{
		CustomerCode: customerCode,
		CustomerName: customerName,
		FromDate:     fromDate,
		ToDate:       toDate,
	}

	// Opening balance: everything invoiced minus everything received
	// strictly before the window.
	if fromDate != "" {
		var invoiced, received decimal.Decimal
		err = s.pool.QueryRow(ctx, `
			SELECT COALESCE((SELECT SUM(total_amount) FROM invoices
			                 WHERE customer_id = $1 AND status IN ('SENT', 'PARTIAL', 'PAID')
			                   AND deleted_at IS NULL AND invoice_date < $2::date), 0),
			       COALESCE((SELECT SUM(amount) FROM payments
			                 WHERE customer_id = $1 AND deleted_at IS NULL
			                   AND payment_date < $2::date), 0)
		`, customerID, fromDate).Scan(&invoiced, &received)
		if err != nil {
			return nil, fmt.Errorf("opening balance: %w", err)
		}
		report.OpeningBalance = invoiced.Sub(received)
	}

	q := `
		SELECT doc_date, doc_number, description, charge, credit FROM (
			SELECT invoice_date AS doc_date, invoice_number AS doc_number,
			       'Invoice' AS description, total_amount AS charge, 0 AS credit
			FROM invoices
			WHERE customer_id = $1 AND status IN ('SENT', 'PARTIAL', 'PAID')
			  AND deleted_at IS NULL
			UNION ALL
			SELECT payment_date, payment_number, 'Payment', 0, amount
			FROM payments
			WHERE customer_id = $1 AND deleted_at IS NULL
		) activity
		WHERE 1 = 1`
	args := []any{customerID}
	if fromDate != "" {
		args = append(args, fromDate)
		q += fmt.Sprintf(" AND doc_date >= $%d::date", len(args))
	}
	if toDate != "" {
		args = append(args, toDate)
		q += fmt.Sprintf(" AND doc_date <= $%d::date", len(args))
	}
	q += " ORDER BY doc_date, doc_number"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("statement query: %w", err)
	}
	defer rows.Close()

	running := report.OpeningBalance
	for rows.Next() {
		var line StatementLine
		var docDate time.Time
		if err := rows.Scan(&docDate, &line.DocumentNumber, &line.Description, &line.Charge, &line.Credit); err != nil {
			return nil, fmt.Errorf("scan statement line: %w", err)
		}
		line.Date = docDate.Format("2006-01-02")
		running = running.Add(line.Charge).Sub(line.Credit)
		line.RunningBalance = running
		report.Lines = append(report.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statement lines: %w", err)
	}

	report.ClosingBalance = running
	return report, nil
}
