package core_test

import (
	"context"
	"errors"
	"testing"

	"bizledger/internal/core"
)

func TestAccount_CreateWithParent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	accounts := core.NewAccountService(pool)

	child, err := accounts.CreateAccount(ctx, "tester", core.AccountInput{
		Code:       "1110",
		Name:       "Savings",
		Type:       core.Asset,
		ParentCode: "1100",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if child.NormalBalance != "debit" {
		t.Errorf("normal balance = %s, want debit", child.NormalBalance)
	}

	// A child's type must match its parent's.
	_, err = accounts.CreateAccount(ctx, "tester", core.AccountInput{
		Code:       "1120",
		Name:       "Misfiled",
		Type:       core.Expense,
		ParentCode: "1100",
	})
	if err == nil {
		t.Error("expected type mismatch with parent to fail")
	}
}

func TestAccount_DeleteGuards(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	accounts := core.NewAccountService(pool)
	ledger := core.NewLedger(pool)

	// System accounts are permanent.
	if err := accounts.DeleteAccount(ctx, "tester", "1200"); err == nil {
		t.Error("expected delete of a system account to fail")
	}

	// Accounts with journal activity are permanent too.
	entry, err := ledger.CreateEntry(ctx, "tester", core.EntryInput{
		EntryDate:   "2026-01-15",
		Description: "Sale",
		Lines: []core.EntryLineInput{
			{AccountCode: "1100", Debit: dec("50")},
			{AccountCode: "4000", Credit: dec("50")},
		},
	})
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}
	if _, err := ledger.PostEntry(ctx, "tester", entry.ID); err != nil {
		t.Fatalf("PostEntry failed: %v", err)
	}
	if err := accounts.DeleteAccount(ctx, "tester", "4000"); err == nil {
		t.Error("expected delete of an account with postings to fail")
	}

	// An unused non-system account tombstones cleanly.
	if _, err := accounts.CreateAccount(ctx, "tester", core.AccountInput{
		Code: "6100", Name: "Travel", Type: core.Expense,
	}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := accounts.DeleteAccount(ctx, "tester", "6100"); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if _, err := accounts.GetAccount(ctx, "6100"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestParty_CustomerRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	parties := core.NewPartyService(pool, rules)

	created, err := parties.CreateCustomer(ctx, "tester", core.CustomerInput{
		Code:  "GLOBEX",
		Name:  "Globex Inc",
		Email: "ap@globex.example",
	})
	if err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}
	if created.PaymentTermsDays != 30 {
		t.Errorf("payment terms = %d, want default 30", created.PaymentTermsDays)
	}

	updated, err := parties.UpdateCustomer(ctx, "tester", "GLOBEX", core.CustomerInput{
		Code:             "GLOBEX",
		Name:             "Globex International",
		PaymentTermsDays: 45,
	})
	if err != nil {
		t.Fatalf("UpdateCustomer failed: %v", err)
	}
	if updated.Name != "Globex International" || updated.PaymentTermsDays != 45 {
		t.Errorf("update not applied: %+v", updated)
	}

	if _, err := parties.GetCustomer(ctx, "NOBODY"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParty_ProductDefaults(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	parties := core.NewPartyService(pool, rules)

	p, err := parties.CreateProduct(ctx, "tester", core.ProductInput{
		Code:      "GADGET",
		Name:      "Gadget",
		UnitPrice: dec("42.50"),
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if p.Unit != "each" {
		t.Errorf("unit = %q, want default each", p.Unit)
	}
	// The revenue account falls back to the REVENUE posting rule.
	if p.RevenueAccountCode != "4000" {
		t.Errorf("revenue account = %s, want 4000", p.RevenueAccountCode)
	}
}
