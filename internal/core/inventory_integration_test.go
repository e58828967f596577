package core_test

import (
	"context"
	"errors"
	"testing"

	"bizledger/internal/core"
)

func TestInventory_ReceiveIssueAdjust(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	inventory := core.NewInventoryService(pool)

	level, err := inventory.Receive(ctx, "tester", "WIDGET", "MAIN", dec("50"), "GRN-1")
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !level.OnHand.Equal(dec("50")) {
		t.Errorf("on hand = %s, want 50", level.OnHand)
	}

	level, err = inventory.Issue(ctx, "tester", "WIDGET", "MAIN", dec("20"), "INV-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !level.OnHand.Equal(dec("30")) {
		t.Errorf("on hand after issue = %s, want 30", level.OnHand)
	}

	// Issuing more than available is rejected.
	_, err = inventory.Issue(ctx, "tester", "WIDGET", "MAIN", dec("31"), "INV-2")
	var insufficient *core.InsufficientError
	if !errors.As(err, &insufficient) {
		t.Errorf("expected InsufficientError, got %v", err)
	}

	// Adjustments need a reason and cannot take on-hand negative.
	if _, err := inventory.Adjust(ctx, "tester", "WIDGET", "MAIN", dec("-2"), ""); err == nil {
		t.Error("expected adjustment without a reason to fail")
	}
	if _, err := inventory.Adjust(ctx, "tester", "WIDGET", "MAIN", dec("-31"), "stocktake"); err == nil {
		t.Error("expected adjustment below zero to fail")
	}
	level, err = inventory.Adjust(ctx, "tester", "WIDGET", "MAIN", dec("-2"), "stocktake shrinkage")
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if !level.OnHand.Equal(dec("28")) {
		t.Errorf("on hand after adjustment = %s, want 28", level.OnHand)
	}

	movements, err := inventory.GetMovements(ctx, "WIDGET", 10)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	if len(movements) != 3 {
		t.Errorf("movement count = %d, want 3", len(movements))
	}
}

func TestInventory_ReservationAffectsAvailability(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	inventory := core.NewInventoryService(pool)

	if _, err := inventory.Receive(ctx, "tester", "WIDGET", "MAIN", dec("10"), ""); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	level, err := inventory.Reserve(ctx, "tester", "WIDGET", "MAIN", dec("7"), "SO-44")
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if !level.Reserved.Equal(dec("7")) {
		t.Errorf("reserved = %s, want 7", level.Reserved)
	}
	if !level.Available.Equal(dec("3")) {
		t.Errorf("available = %s, want 3", level.Available)
	}

	// Issue is bounded by availability, not on-hand.
	_, err = inventory.Issue(ctx, "tester", "WIDGET", "MAIN", dec("4"), "")
	var insufficient *core.InsufficientError
	if !errors.As(err, &insufficient) {
		t.Errorf("expected InsufficientError, got %v", err)
	}

	// Releasing more than reserved is rejected.
	if _, err := inventory.Release(ctx, "tester", "WIDGET", "MAIN", dec("8"), "SO-44"); err == nil {
		t.Error("expected over-release to fail")
	}

	level, err = inventory.Release(ctx, "tester", "WIDGET", "MAIN", dec("7"), "SO-44")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !level.Available.Equal(dec("10")) {
		t.Errorf("available after release = %s, want 10", level.Available)
	}
}

func TestInventory_TransferBetweenLocations(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	inventory := core.NewInventoryService(pool)

	if _, err := inventory.Receive(ctx, "tester", "WIDGET", "MAIN", dec("12"), ""); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	if err := inventory.Transfer(ctx, "tester", "WIDGET", "MAIN", "EAST", dec("5"), "rebalance"); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	main, err := inventory.GetStockLevel(ctx, "WIDGET", "MAIN")
	if err != nil {
		t.Fatalf("GetStockLevel failed: %v", err)
	}
	if !main.OnHand.Equal(dec("7")) {
		t.Errorf("MAIN on hand = %s, want 7", main.OnHand)
	}
	east, err := inventory.GetStockLevel(ctx, "WIDGET", "EAST")
	if err != nil {
		t.Fatalf("GetStockLevel failed: %v", err)
	}
	if !east.OnHand.Equal(dec("5")) {
		t.Errorf("EAST on hand = %s, want 5", east.OnHand)
	}

	// Transferring more than the source holds fails atomically.
	if err := inventory.Transfer(ctx, "tester", "WIDGET", "MAIN", "EAST", dec("8"), ""); err == nil {
		t.Error("expected over-transfer to fail")
	}
}

func TestInventory_RejectsUntrackedProduct(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	inventory := core.NewInventoryService(pool)

	// CONSULT is a service product without inventory tracking.
	if _, err := inventory.Receive(ctx, "tester", "CONSULT", "MAIN", dec("1"), ""); err == nil {
		t.Error("expected receipt of an untracked product to fail")
	}
}
