package core_test

import (
	"context"
	"testing"

	"bizledger/internal/core"
)

func TestReporting_ExcludesTombstonedDocuments(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)
	payments := core.NewPaymentService(pool, rules, ledger)
	reports := core.NewReportingService(pool)

	kept := sendTestInvoice(t, invoices, "2026-03-01", "4")   // 100
	buried := sendTestInvoice(t, invoices, "2026-03-01", "8") // 200

	pay, err := payments.CreatePayment(ctx, "tester", core.PaymentInput{
		CustomerCode: "ACME",
		PaymentDate:  "2026-03-10",
		Amount:       dec("50"),
	})
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	buriedPay, err := payments.CreatePayment(ctx, "tester", core.PaymentInput{
		CustomerCode: "ACME",
		PaymentDate:  "2026-03-12",
		Amount:       dec("70"),
	})
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	if _, err := pool.Exec(ctx,
		"UPDATE invoices SET deleted_at = NOW() WHERE id = $1", buried.ID,
	); err != nil {
		t.Fatalf("tombstoning invoice failed: %v", err)
	}
	if _, err := pool.Exec(ctx,
		"UPDATE payments SET deleted_at = NOW() WHERE id = $1", buriedPay.ID,
	); err != nil {
		t.Fatalf("tombstoning payment failed: %v", err)
	}

	listed, err := invoices.GetInvoices(ctx, "")
	if err != nil {
		t.Fatalf("GetInvoices failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != kept.ID {
		t.Errorf("invoice list = %d rows, want only invoice %d", len(listed), kept.ID)
	}

	listedPay, err := payments.GetPayments(ctx, "ACME")
	if err != nil {
		t.Fatalf("GetPayments failed: %v", err)
	}
	if len(listedPay) != 1 || listedPay[0].ID != pay.ID {
		t.Errorf("payment list = %d rows, want only payment %d", len(listedPay), pay.ID)
	}

	aging, err := reports.ARAging(ctx, "2026-03-31")
	if err != nil {
		t.Fatalf("ARAging failed: %v", err)
	}
	if !aging.Total.Equal(dec("100")) {
		t.Errorf("aging total = %s, want 100", aging.Total)
	}

	stmt, err := reports.CustomerStatement(ctx, "ACME", "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("CustomerStatement failed: %v", err)
	}
	if len(stmt.Lines) != 2 {
		t.Fatalf("statement lines = %d, want 2", len(stmt.Lines))
	}
	if !stmt.ClosingBalance.Equal(dec("50")) {
		t.Errorf("closing balance = %s, want 50", stmt.ClosingBalance)
	}
}

func TestReporting_TrialBalanceAndPL(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)
	bills := core.NewVendorBillService(pool, rules, ledger)
	payments := core.NewPaymentService(pool, rules, ledger)
	reports := core.NewReportingService(pool)

	sendTestInvoice(t, invoices, "2026-03-01", "10") // 250 revenue

	bill, err := bills.CreateBill(ctx, "tester", core.BillInput{
		VendorCode: "SUPPLY",
		BillDate:   "2026-03-05",
		Lines:      []core.CostLineInput{{Description: "Utilities", Quantity: dec("1"), UnitCost: dec("100")}},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if _, err := bills.ReceiveBill(ctx, "tester", bill.ID); err != nil {
		t.Fatalf("ReceiveBill failed: %v", err)
	}

	if _, err := payments.CreatePayment(ctx, "tester", core.PaymentInput{
		CustomerCode: "ACME",
		PaymentDate:  "2026-03-20",
		Amount:       dec("100"),
		AutoAllocate: true,
	}); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	tb, err := reports.TrialBalance(ctx, "2026-03-31")
	if err != nil {
		t.Fatalf("TrialBalance failed: %v", err)
	}
	if !tb.IsBalanced {
		t.Errorf("trial balance out of balance: debits %s credits %s", tb.TotalDebits, tb.TotalCredits)
	}
	if !tb.TotalDebits.Equal(dec("350")) {
		t.Errorf("total debits = %s, want 350", tb.TotalDebits)
	}

	byCode := map[string]core.TrialBalanceLine{}
	for _, line := range tb.Lines {
		byCode[line.Code] = line
	}
	if !byCode["1200"].Debit.Equal(dec("150")) {
		t.Errorf("AR net debit = %s, want 150", byCode["1200"].Debit)
	}
	if !byCode["4000"].Credit.Equal(dec("250")) {
		t.Errorf("revenue net credit = %s, want 250", byCode["4000"].Credit)
	}

	pl, err := reports.ProfitAndLoss(ctx, "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("ProfitAndLoss failed: %v", err)
	}
	if !pl.TotalRevenue.Equal(dec("250")) {
		t.Errorf("total revenue = %s, want 250", pl.TotalRevenue)
	}
	if !pl.TotalExpenses.Equal(dec("100")) {
		t.Errorf("total expenses = %s, want 100", pl.TotalExpenses)
	}
	if !pl.NetIncome.Equal(dec("150")) {
		t.Errorf("net income = %s, want 150", pl.NetIncome)
	}

	bs, err := reports.BalanceSheet(ctx, "2026-03-31")
	if err != nil {
		t.Fatalf("BalanceSheet failed: %v", err)
	}
	if !bs.IsBalanced {
		t.Errorf("balance sheet out of balance: assets %s, liabilities %s, equity %s",
			bs.TotalAssets, bs.TotalLiabilities, bs.TotalEquity)
	}
	if !bs.TotalAssets.Equal(dec("250")) {
		t.Errorf("total assets = %s, want 250", bs.TotalAssets)
	}
	if !bs.RetainedEarnings.Equal(dec("150")) {
		t.Errorf("retained earnings = %s, want 150", bs.RetainedEarnings)
	}
}

func TestReporting_ARAgingBuckets(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)
	reports := core.NewReportingService(pool)

	// Due 2026-03-15 (14-day terms): 16 days past at the report date.
	overdue := sendTestInvoice(t, invoices, "2026-03-01", "4") // 100

	// Due 2026-04-03 (14-day terms): not yet due at the report date.
	current := sendTestInvoice(t, invoices, "2026-03-20", "8") // 200

	report, err := reports.ARAging(ctx, "2026-03-31")
	if err != nil {
		t.Fatalf("ARAging failed: %v", err)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("row count = %d, want 1", len(report.Rows))
	}
	row := report.Rows[0]
	if row.CustomerCode != "ACME" {
		t.Errorf("customer = %s, want ACME", row.CustomerCode)
	}
	if !row.Days1to30.Equal(overdue.TotalAmount) {
		t.Errorf("1-30 bucket = %s, want %s", row.Days1to30, overdue.TotalAmount)
	}
	if !row.Current.Equal(current.TotalAmount) {
		t.Errorf("current bucket = %s, want %s", row.Current, current.TotalAmount)
	}
	if !report.Total.Equal(dec("300")) {
		t.Errorf("aging total = %s, want 300", report.Total)
	}
}

func TestReporting_CustomerStatement(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)
	payments := core.NewPaymentService(pool, rules, ledger)
	reports := core.NewReportingService(pool)

	// Activity before the window establishes the opening balance.
	sendTestInvoice(t, invoices, "2026-02-10", "4") // 100

	sendTestInvoice(t, invoices, "2026-03-05", "8") // 200
	if _, err := payments.CreatePayment(ctx, "tester", core.PaymentInput{
		CustomerCode: "ACME",
		PaymentDate:  "2026-03-18",
		Amount:       dec("120"),
	}); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	stmt, err := reports.CustomerStatement(ctx, "ACME", "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("CustomerStatement failed: %v", err)
	}
	if !stmt.OpeningBalance.Equal(dec("100")) {
		t.Errorf("opening balance = %s, want 100", stmt.OpeningBalance)
	}
	if len(stmt.Lines) != 2 {
		t.Fatalf("line count = %d, want 2", len(stmt.Lines))
	}
	// Chronological: the invoice charge, then the payment credit.
	if !stmt.Lines[0].Charge.Equal(dec("200")) {
		t.Errorf("line 1 charge = %s, want 200", stmt.Lines[0].Charge)
	}
	if !stmt.Lines[1].Credit.Equal(dec("120")) {
		t.Errorf("line 2 credit = %s, want 120", stmt.Lines[1].Credit)
	}
	if !stmt.ClosingBalance.Equal(dec("180")) {
		t.Errorf("closing balance = %s, want 180", stmt.ClosingBalance)
	}

	// Unknown customers are a not-found error, not an empty statement.
	if _, err := reports.CustomerStatement(ctx, "NOBODY", "", ""); err == nil {
		t.Error("expected unknown customer to fail")
	}
}
