package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// setupTestDB connects to the dedicated test database, truncates every table
// and seeds a minimal chart of accounts plus master data. Integration tests
// are skipped entirely when TEST_DATABASE_URL is not set, so the live
// database is never touched. Run cmd/migrate against the test database once
// before the first run.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE payment_allocations, payments,
		               stock_movements, stock_levels, stock_locations,
		               vendor_bill_items, vendor_bills,
		               purchase_order_items, purchase_orders,
		               quote_items, quotes,
		               invoice_items, invoices,
		               journal_entry_lines, journal_entries,
		               document_sequences, posting_rules,
		               products, vendors, customers, accounts
		RESTART IDENTITY CASCADE;

		INSERT INTO accounts (code, name, type, normal_balance, is_system, created_by) VALUES
		('1100', 'Bank',                'asset',     'debit',  true,  'seed'),
		('1200', 'Accounts Receivable', 'asset',     'debit',  true,  'seed'),
		('1250', 'Tax Input Credits',   'asset',     'debit',  true,  'seed'),
		('1400', 'Inventory',           'asset',     'debit',  true,  'seed'),
		('2000', 'Accounts Payable',    'liability', 'credit', true,  'seed'),
		('2100', 'Tax Payable',         'liability', 'credit', true,  'seed'),
		('3000', 'Owner Equity',        'equity',    'credit', true,  'seed'),
		('4000', 'Sales Revenue',       'revenue',   'credit', false, 'seed'),
		('6000', 'Operating Expenses',  'expense',   'debit',  false, 'seed');

		INSERT INTO posting_rules (role, account_code) VALUES
		('AR', '1200'), ('AP', '2000'), ('REVENUE', '4000'),
		('TAX_PAYABLE', '2100'), ('TAX_INPUT', '1250'),
		('BANK', '1100'), ('INVENTORY', '1400');

		INSERT INTO customers (code, name, payment_terms_days, created_by) VALUES
		('ACME', 'Acme Corp', 14, 'seed');

		INSERT INTO vendors (code, name, payment_terms_days, expense_account_code, created_by) VALUES
		('SUPPLY', 'Supply Co', 30, '6000', 'seed');

		INSERT INTO products (code, name, unit_price, unit, revenue_account_code,
		                      expense_account_code, track_inventory, created_by) VALUES
		('WIDGET',  'Widget',          '25.00',  'each', '4000', '6000', true,  'seed'),
		('CONSULT', 'Consulting Hour', '150.00', 'hour', '4000', '6000', false, 'seed');

		INSERT INTO stock_locations (code, name, is_default) VALUES
		('MAIN', 'Main Warehouse', true),
		('EAST', 'East Depot', false);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}
