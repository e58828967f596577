package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bizledger/internal/core"
)

func TestInvoice_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)

	inv, err := invoices.CreateInvoice(ctx, "tester", core.InvoiceInput{
		CustomerCode: "ACME",
		InvoiceDate:  "2026-03-01",
		Lines: []core.LineInput{
			{ProductCode: "WIDGET", Quantity: dec("4")},
			{Description: "Rush delivery", Quantity: dec("1"), UnitPrice: decPtr("20"), TaxRate: dec("10")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	if inv.Status != core.InvoiceDraft {
		t.Errorf("status = %s, want DRAFT", inv.Status)
	}
	if inv.InvoiceNumber == "" {
		t.Error("invoice number was not assigned at creation")
	}
	// ACME has 14-day terms; the due date defaults from them.
	if inv.DueDate != "2026-03-15" {
		t.Errorf("due date = %s, want 2026-03-15", inv.DueDate)
	}
	// Line 1 takes the product's price: 4 x 25 = 100. Line 2: 20 + 2 tax.
	if !inv.TotalAmount.Equal(dec("122")) {
		t.Errorf("total = %s, want 122", inv.TotalAmount)
	}
	if !inv.BalanceDue.Equal(inv.TotalAmount) {
		t.Errorf("balance due = %s, want %s", inv.BalanceDue, inv.TotalAmount)
	}
	if len(inv.Items) != 2 {
		t.Fatalf("item count = %d, want 2", len(inv.Items))
	}
	if inv.Items[0].Description != "Widget" {
		t.Errorf("line 1 description = %q, want product name", inv.Items[0].Description)
	}

	sent, err := invoices.SendInvoice(ctx, "tester", inv.ID)
	if err != nil {
		t.Fatalf("SendInvoice failed: %v", err)
	}
	if sent.Status != core.InvoiceSent {
		t.Errorf("status after send = %s, want SENT", sent.Status)
	}
	if sent.JournalEntryID == nil {
		t.Fatal("sending did not link a journal entry")
	}

	// DR AR for the gross amount; CR tax payable for the tax portion.
	arBalance, err := ledger.AccountBalance(ctx, "1200", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !arBalance.Equal(dec("122")) {
		t.Errorf("AR balance = %s, want 122", arBalance)
	}
	taxBalance, err := ledger.AccountBalance(ctx, "2100", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !taxBalance.Equal(dec("2")) {
		t.Errorf("tax payable balance = %s, want 2", taxBalance)
	}

	// Sending twice is an illegal transition.
	if _, err := invoices.SendInvoice(ctx, "tester", inv.ID); err == nil {
		t.Error("expected second send to fail")
	} else {
		var transition *core.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Errorf("expected InvalidTransitionError, got %T", err)
		}
	}
}

func TestInvoice_UpdateDraftOnly(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)

	inv, err := invoices.CreateInvoice(ctx, "tester", core.InvoiceInput{
		CustomerCode: "ACME",
		InvoiceDate:  "2026-03-01",
		Lines:        []core.LineInput{{ProductCode: "CONSULT", Quantity: dec("2")}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	updated, err := invoices.UpdateDraft(ctx, "tester", inv.ID, core.InvoiceInput{
		CustomerCode: "ACME",
		InvoiceDate:  "2026-03-02",
		Lines:        []core.LineInput{{ProductCode: "CONSULT", Quantity: dec("5")}},
	})
	if err != nil {
		t.Fatalf("UpdateDraft failed: %v", err)
	}
	if updated.InvoiceNumber != inv.InvoiceNumber {
		t.Error("updating a draft must not renumber it")
	}
	if !updated.TotalAmount.Equal(dec("750")) {
		t.Errorf("total after update = %s, want 750", updated.TotalAmount)
	}

	if _, err := invoices.SendInvoice(ctx, "tester", inv.ID); err != nil {
		t.Fatalf("SendInvoice failed: %v", err)
	}
	if _, err := invoices.UpdateDraft(ctx, "tester", inv.ID, core.InvoiceInput{
		CustomerCode: "ACME",
		InvoiceDate:  "2026-03-03",
		Lines:        []core.LineInput{{ProductCode: "CONSULT", Quantity: dec("1")}},
	}); err == nil {
		t.Error("expected update of a sent invoice to fail")
	}
}

func TestInvoice_VoidReversesPosting(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)

	inv, err := invoices.CreateInvoice(ctx, "tester", core.InvoiceInput{
		CustomerCode: "ACME",
		InvoiceDate:  "2026-03-01",
		Lines:        []core.LineInput{{ProductCode: "WIDGET", Quantity: dec("10")}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if _, err := invoices.SendInvoice(ctx, "tester", inv.ID); err != nil {
		t.Fatalf("SendInvoice failed: %v", err)
	}

	if _, err := invoices.VoidInvoice(ctx, "tester", inv.ID, ""); err == nil {
		t.Error("expected void without a reason to fail")
	}

	voided, err := invoices.VoidInvoice(ctx, "tester", inv.ID, "duplicate billing")
	if err != nil {
		t.Fatalf("VoidInvoice failed: %v", err)
	}
	if voided.Status != core.InvoiceVoid {
		t.Errorf("status = %s, want VOID", voided.Status)
	}
	if !voided.BalanceDue.IsZero() {
		t.Errorf("balance due after void = %s, want 0", voided.BalanceDue)
	}

	arBalance, err := ledger.AccountBalance(ctx, "1200", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !arBalance.IsZero() {
		t.Errorf("AR balance after void = %s, want 0", arBalance)
	}
}

func TestInvoice_DisplayStatusDerivesOverdue(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)

	// Invoiced 60 days ago on 14-day terms, so long past due.
	stale := sendTestInvoice(t, invoices, time.Now().AddDate(0, 0, -60).Format("2006-01-02"), "1")
	if stale.Status != core.InvoiceSent {
		t.Errorf("stored status = %s, want SENT", stale.Status)
	}
	if stale.DisplayStatus != core.InvoiceOverdue {
		t.Errorf("display status = %s, want OVERDUE", stale.DisplayStatus)
	}

	// Invoiced today, due in 14 days.
	fresh := sendTestInvoice(t, invoices, time.Now().Format("2006-01-02"), "1")
	if fresh.DisplayStatus != core.InvoiceSent {
		t.Errorf("display status = %s, want SENT", fresh.DisplayStatus)
	}

	listed, err := invoices.GetInvoices(ctx, "")
	if err != nil {
		t.Fatalf("GetInvoices failed: %v", err)
	}
	for _, inv := range listed {
		if inv.DisplayStatus == "" {
			t.Errorf("invoice %s has no display status", inv.InvoiceNumber)
		}
	}
}

func TestInvoice_ExplicitZeroPriceStaysFree(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)

	// A giveaway line priced at zero next to a defaulted line. The zero
	// must survive, not fall back to the product's 25.00 list price.
	inv, err := invoices.CreateInvoice(ctx, "tester", core.InvoiceInput{
		CustomerCode: "ACME",
		InvoiceDate:  "2026-03-01",
		Lines: []core.LineInput{
			{ProductCode: "WIDGET", Quantity: dec("2"), UnitPrice: decPtr("0")},
			{ProductCode: "WIDGET", Quantity: dec("3")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	if !inv.Items[0].UnitPrice.IsZero() {
		t.Errorf("free line unit price = %s, want 0", inv.Items[0].UnitPrice)
	}
	if !inv.Items[1].UnitPrice.Equal(dec("25")) {
		t.Errorf("defaulted line unit price = %s, want 25", inv.Items[1].UnitPrice)
	}
	if !inv.TotalAmount.Equal(dec("75")) {
		t.Errorf("total = %s, want 75", inv.TotalAmount)
	}
}

func TestInvoice_RejectsUnknownCustomer(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	invoices := core.NewInvoiceService(pool, rules, ledger)

	_, err := invoices.CreateInvoice(ctx, "tester", core.InvoiceInput{
		CustomerCode: "NOBODY",
		InvoiceDate:  "2026-03-01",
		Lines:        []core.LineInput{{ProductCode: "WIDGET", Quantity: dec("1")}},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
