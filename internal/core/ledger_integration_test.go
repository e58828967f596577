package core_test

import (
	"context"
	"testing"

	"bizledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestLedger_CreateAndPost(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	ctx := context.Background()

	entry, err := ledger.CreateEntry(ctx, "tester", core.EntryInput{
		EntryDate:   "2026-01-15",
		Description: "Opening bank deposit",
		Lines: []core.EntryLineInput{
			{AccountCode: "1100", Debit: dec("1000")},
			{AccountCode: "3000", Credit: dec("1000")},
		},
	})
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}
	if entry.IsPosted {
		t.Error("new entry should not be posted")
	}
	if entry.EntryNumber == "" {
		t.Error("entry number was not assigned")
	}

	posted, err := ledger.PostEntry(ctx, "tester", entry.ID)
	if err != nil {
		t.Fatalf("PostEntry failed: %v", err)
	}
	if !posted {
		t.Error("first post should report true")
	}

	// Posting again is a no-op, not an error.
	posted, err = ledger.PostEntry(ctx, "tester", entry.ID)
	if err != nil {
		t.Fatalf("Second PostEntry failed: %v", err)
	}
	if posted {
		t.Error("second post should report false")
	}

	balance, err := ledger.AccountBalance(ctx, "1100", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !balance.Equal(dec("1000")) {
		t.Errorf("bank balance = %s, want 1000", balance)
	}
}

func TestLedger_RejectsUnbalancedEntry(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	ctx := context.Background()

	_, err := ledger.CreateEntry(ctx, "tester", core.EntryInput{
		EntryDate:   "2026-01-15",
		Description: "Lopsided",
		Lines: []core.EntryLineInput{
			{AccountCode: "1100", Debit: dec("100")},
			{AccountCode: "3000", Credit: dec("99.50")},
		},
	})
	if err == nil {
		t.Fatal("expected unbalanced entry to be rejected")
	}
}

func TestLedger_ToleratesSubCentDrift(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	ctx := context.Background()

	// Sub-half-cent drift rounds away before the balance check.
	_, err := ledger.CreateEntry(ctx, "tester", core.EntryInput{
		EntryDate:   "2026-01-15",
		Description: "Rounding drift",
		Lines: []core.EntryLineInput{
			{AccountCode: "1100", Debit: decimal.RequireFromString("100.004")},
			{AccountCode: "3000", Credit: dec("100")},
		},
	})
	if err != nil {
		t.Fatalf("expected drift within tolerance to pass, got: %v", err)
	}
}

func TestLedger_Reversal(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	ctx := context.Background()

	entry, err := ledger.CreateEntry(ctx, "tester", core.EntryInput{
		EntryDate:   "2026-02-01",
		Description: "Cash sale",
		Lines: []core.EntryLineInput{
			{AccountCode: "1100", Debit: dec("500")},
			{AccountCode: "4000", Credit: dec("500")},
		},
	})
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}
	if _, err := ledger.PostEntry(ctx, "tester", entry.ID); err != nil {
		t.Fatalf("PostEntry failed: %v", err)
	}

	reversal, err := ledger.ReverseEntry(ctx, "tester", entry.ID, "entered in error")
	if err != nil {
		t.Fatalf("ReverseEntry failed: %v", err)
	}
	if !reversal.IsPosted {
		t.Error("reversal should be posted on creation")
	}

	original, err := ledger.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if original.ReversedByID == nil || *original.ReversedByID != reversal.ID {
		t.Error("original entry is not linked to its reversal")
	}

	// Reversal swaps sides, so the net balance is zero.
	balance, err := ledger.AccountBalance(ctx, "4000", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("revenue balance after reversal = %s, want 0", balance)
	}

	// A reversed entry cannot be reversed again.
	if _, err := ledger.ReverseEntry(ctx, "tester", entry.ID, "again"); err == nil {
		t.Error("expected second reversal to fail")
	}
}

func TestLedger_AccountBalanceAsOf(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	ctx := context.Background()

	for _, e := range []struct {
		date   string
		amount string
	}{
		{"2026-01-10", "100"},
		{"2026-03-10", "250"},
	} {
		entry, err := ledger.CreateEntry(ctx, "tester", core.EntryInput{
			EntryDate:   e.date,
			Description: "Deposit",
			Lines: []core.EntryLineInput{
				{AccountCode: "1100", Debit: dec(e.amount)},
				{AccountCode: "3000", Credit: dec(e.amount)},
			},
		})
		if err != nil {
			t.Fatalf("CreateEntry failed: %v", err)
		}
		if _, err := ledger.PostEntry(ctx, "tester", entry.ID); err != nil {
			t.Fatalf("PostEntry failed: %v", err)
		}
	}

	balance, err := ledger.AccountBalance(ctx, "1100", "2026-01-31")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !balance.Equal(dec("100")) {
		t.Errorf("balance as of January = %s, want 100", balance)
	}

	balance, err = ledger.AccountBalance(ctx, "1100", "")
	if err != nil {
		t.Fatalf("AccountBalance failed: %v", err)
	}
	if !balance.Equal(dec("350")) {
		t.Errorf("unbounded balance = %s, want 350", balance)
	}
}
