package core_test

import (
	"context"
	"errors"
	"testing"

	"bizledger/internal/core"
)

func TestPurchaseOrder_ReceiveFlow(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	orders := core.NewPurchaseOrderService(pool)
	inventory := core.NewInventoryService(pool)

	po, err := orders.CreateOrder(ctx, "tester", core.PurchaseOrderInput{
		VendorCode: "SUPPLY",
		OrderDate:  "2026-06-01",
		Lines: []core.CostLineInput{
			{ProductCode: "WIDGET", Quantity: dec("20"), UnitCost: dec("12")},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if po.Status != core.PODraft {
		t.Errorf("status = %s, want DRAFT", po.Status)
	}
	if !po.TotalAmount.Equal(dec("240")) {
		t.Errorf("total = %s, want 240", po.TotalAmount)
	}

	// Receiving requires confirmation.
	receipts := []core.ReceiptLine{{ItemID: po.Items[0].ID, Quantity: dec("5")}}
	if _, err := orders.ReceiveItems(ctx, "tester", po.ID, receipts, "MAIN", inventory); err == nil {
		t.Error("expected receipt against a draft order to fail")
	}

	if _, err := orders.SendOrder(ctx, "tester", po.ID); err != nil {
		t.Fatalf("SendOrder failed: %v", err)
	}
	if _, err := orders.ConfirmOrder(ctx, "tester", po.ID); err != nil {
		t.Fatalf("ConfirmOrder failed: %v", err)
	}

	partial, err := orders.ReceiveItems(ctx, "tester", po.ID, receipts, "MAIN", inventory)
	if err != nil {
		t.Fatalf("ReceiveItems failed: %v", err)
	}
	if partial.Status != core.POPartiallyReceived {
		t.Errorf("status = %s, want PARTIALLY_RECEIVED", partial.Status)
	}
	if !partial.Items[0].ReceivedQuantity.Equal(dec("5")) {
		t.Errorf("received quantity = %s, want 5", partial.Items[0].ReceivedQuantity)
	}

	// Stock landed at the receiving location.
	level, err := inventory.GetStockLevel(ctx, "WIDGET", "MAIN")
	if err != nil {
		t.Fatalf("GetStockLevel failed: %v", err)
	}
	if !level.OnHand.Equal(dec("5")) {
		t.Errorf("on hand = %s, want 5", level.OnHand)
	}

	// Receiving beyond the remaining quantity is rejected.
	over := []core.ReceiptLine{{ItemID: po.Items[0].ID, Quantity: dec("16")}}
	_, err = orders.ReceiveItems(ctx, "tester", po.ID, over, "MAIN", inventory)
	var insufficient *core.InsufficientError
	if !errors.As(err, &insufficient) {
		t.Errorf("expected InsufficientError, got %v", err)
	}

	rest := []core.ReceiptLine{{ItemID: po.Items[0].ID, Quantity: dec("15")}}
	full, err := orders.ReceiveItems(ctx, "tester", po.ID, rest, "MAIN", inventory)
	if err != nil {
		t.Fatalf("ReceiveItems failed: %v", err)
	}
	if full.Status != core.POReceived {
		t.Errorf("status = %s, want RECEIVED", full.Status)
	}
	if full.ReceivedAt == nil {
		t.Error("received timestamp was not stamped")
	}
}

func TestPurchaseOrder_CancelGuards(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	orders := core.NewPurchaseOrderService(pool)

	po, err := orders.CreateOrder(ctx, "tester", core.PurchaseOrderInput{
		VendorCode: "SUPPLY",
		OrderDate:  "2026-06-01",
		Lines:      []core.CostLineInput{{ProductCode: "WIDGET", Quantity: dec("3"), UnitCost: dec("12")}},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if _, err := orders.CancelOrder(ctx, "tester", po.ID, ""); err == nil {
		t.Error("expected cancel without a reason to fail")
	}

	cancelled, err := orders.CancelOrder(ctx, "tester", po.ID, "vendor out of stock")
	if err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	if cancelled.Status != core.POCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.CancelReason != "vendor out of stock" {
		t.Errorf("cancel reason = %q", cancelled.CancelReason)
	}

	// A cancelled order cannot move forward.
	if _, err := orders.SendOrder(ctx, "tester", po.ID); err == nil {
		t.Error("expected send of a cancelled order to fail")
	}
}

func TestPurchaseOrder_CreateBillFromOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)
	orders := core.NewPurchaseOrderService(pool)
	bills := core.NewVendorBillService(pool, rules, ledger)

	po, err := orders.CreateOrder(ctx, "tester", core.PurchaseOrderInput{
		VendorCode: "SUPPLY",
		OrderDate:  "2026-06-01",
		Lines: []core.CostLineInput{
			{ProductCode: "WIDGET", Quantity: dec("10"), UnitCost: dec("12"), TaxRate: dec("10")},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	// Billing a draft order is illegal.
	if _, err := orders.CreateBillFromOrder(ctx, "tester", po.ID, bills); err == nil {
		t.Error("expected billing a draft order to fail")
	}

	if _, err := orders.SendOrder(ctx, "tester", po.ID); err != nil {
		t.Fatalf("SendOrder failed: %v", err)
	}
	if _, err := orders.ConfirmOrder(ctx, "tester", po.ID); err != nil {
		t.Fatalf("ConfirmOrder failed: %v", err)
	}

	bill, err := orders.CreateBillFromOrder(ctx, "tester", po.ID, bills)
	if err != nil {
		t.Fatalf("CreateBillFromOrder failed: %v", err)
	}
	if bill.Status != core.BillDraft {
		t.Errorf("bill status = %s, want DRAFT", bill.Status)
	}
	if bill.VendorReference != po.PONumber {
		t.Errorf("vendor reference = %q, want %q", bill.VendorReference, po.PONumber)
	}
	if bill.PurchaseOrderID == nil || *bill.PurchaseOrderID != po.ID {
		t.Error("bill is not linked to its purchase order")
	}
	if !bill.TotalAmount.Equal(po.TotalAmount) {
		t.Errorf("bill total = %s, want order total %s", bill.TotalAmount, po.TotalAmount)
	}

	// Billing does not advance the order itself.
	after, err := orders.GetOrder(ctx, po.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if after.Status != core.POConfirmed {
		t.Errorf("order status = %s, want CONFIRMED", after.Status)
	}
}
