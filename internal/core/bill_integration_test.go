package core_test

import (
	"context"
	"errors"
	"testing"

	"bizledger/internal/core"
)

func TestVendorBill_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	bills := core.NewVendorBillService(pool, rules, ledger)

	bill, err := bills.CreateBill(ctx, "tester", core.BillInput{
		VendorCode:      "SUPPLY",
		VendorReference: "INV-9981",
		BillDate:        "2026-05-01",
		Lines: []core.CostLineInput{
			{Description: "Office rent", Quantity: dec("1"), UnitCost: dec("800")},
			{ProductCode: "WIDGET", Quantity: dec("10"), UnitCost: dec("12"), TaxRate: dec("10")},
		},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if bill.Status != core.BillDraft {
		t.Errorf("status = %s, want DRAFT", bill.Status)
	}
	// SUPPLY has 30-day terms.
	if bill.DueDate != "2026-05-31" {
		t.Errorf("due date = %s, want 2026-05-31", bill.DueDate)
	}
	// 800 + 120 + 12 tax.
	if !bill.TotalAmount.Equal(dec("932")) {
		t.Errorf("total = %s, want 932", bill.TotalAmount)
	}

	// Paying a draft is illegal; receipt posts the payable first.
	if _, err := bills.RecordPayment(ctx, "tester", bill.ID, dec("100"), "", "2026-05-02"); err == nil {
		t.Error("expected payment against a draft bill to fail")
	}

	received, err := bills.ReceiveBill(ctx, "tester", bill.ID)
	if err != nil {
		t.Fatalf("ReceiveBill failed: %v", err)
	}
	if received.Status != core.BillReceived {
		t.Errorf("status = %s, want RECEIVED", received.Status)
	}
	if received.JournalEntryID == nil {
		t.Fatal("receipt did not link a journal entry")
	}

	apBalance, err := ledger.AccountBalance(ctx, "2000", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !apBalance.Equal(dec("932")) {
		t.Errorf("AP balance = %s, want 932", apBalance)
	}
	taxInput, err := ledger.AccountBalance(ctx, "1250", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !taxInput.Equal(dec("12")) {
		t.Errorf("tax input balance = %s, want 12", taxInput)
	}
	expense, err := ledger.AccountBalance(ctx, "6000", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !expense.Equal(dec("920")) {
		t.Errorf("expense balance = %s, want 920", expense)
	}
}

func TestVendorBill_PaymentToSettlement(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	bills := core.NewVendorBillService(pool, rules, ledger)

	bill, err := bills.CreateBill(ctx, "tester", core.BillInput{
		VendorCode: "SUPPLY",
		BillDate:   "2026-05-01",
		Lines:      []core.CostLineInput{{Description: "Hosting", Quantity: dec("1"), UnitCost: dec("500")}},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if _, err := bills.ReceiveBill(ctx, "tester", bill.ID); err != nil {
		t.Fatalf("ReceiveBill failed: %v", err)
	}

	// Overpaying is rejected before anything is written.
	_, err = bills.RecordPayment(ctx, "tester", bill.ID, dec("600"), "", "2026-05-10")
	var insufficient *core.InsufficientError
	if !errors.As(err, &insufficient) {
		t.Errorf("expected InsufficientError, got %v", err)
	}

	partial, err := bills.RecordPayment(ctx, "tester", bill.ID, dec("200"), "", "2026-05-10")
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if partial.Status != core.BillPartial {
		t.Errorf("status = %s, want PARTIAL", partial.Status)
	}
	if !partial.BalanceDue.Equal(dec("300")) {
		t.Errorf("balance due = %s, want 300", partial.BalanceDue)
	}

	paid, err := bills.RecordPayment(ctx, "tester", bill.ID, dec("300"), "", "2026-05-20")
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if paid.Status != core.BillPaid {
		t.Errorf("status = %s, want PAID", paid.Status)
	}

	// AP is settled; the bank went down by the full amount.
	apBalance, err := ledger.AccountBalance(ctx, "2000", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !apBalance.IsZero() {
		t.Errorf("AP balance = %s, want 0", apBalance)
	}
	bankBalance, err := ledger.AccountBalance(ctx, "1100", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !bankBalance.Equal(dec("-500")) {
		t.Errorf("bank balance = %s, want -500", bankBalance)
	}
}

func TestVendorBill_VoidReversesPosting(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	bills := core.NewVendorBillService(pool, rules, ledger)

	bill, err := bills.CreateBill(ctx, "tester", core.BillInput{
		VendorCode: "SUPPLY",
		BillDate:   "2026-05-01",
		Lines:      []core.CostLineInput{{Description: "Duplicate charge", Quantity: dec("1"), UnitCost: dec("75")}},
	})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if _, err := bills.ReceiveBill(ctx, "tester", bill.ID); err != nil {
		t.Fatalf("ReceiveBill failed: %v", err)
	}

	voided, err := bills.VoidBill(ctx, "tester", bill.ID, "duplicate of BILL-202605-0001")
	if err != nil {
		t.Fatalf("VoidBill failed: %v", err)
	}
	if voided.Status != core.BillVoid {
		t.Errorf("status = %s, want VOID", voided.Status)
	}

	apBalance, err := ledger.AccountBalance(ctx, "2000", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !apBalance.IsZero() {
		t.Errorf("AP balance after void = %s, want 0", apBalance)
	}
}
