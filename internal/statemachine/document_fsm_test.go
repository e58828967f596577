package statemachine_test

import (
	"context"
	"testing"

	"bizledger/internal/statemachine"
)

func TestInvoiceMachine(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		event   string
		allowed bool
	}{
		{"send from draft", "DRAFT", statemachine.EventSend, true},
		{"send twice", "SENT", statemachine.EventSend, false},
		{"partial payment after send", "SENT", statemachine.EventMarkPartial, true},
		{"full payment after partial", "PARTIAL", statemachine.EventMarkPaid, true},
		{"deallocation reopens paid", "PAID", statemachine.EventReopen, true},
		{"void draft", "DRAFT", statemachine.EventVoid, true},
		{"void sent", "SENT", statemachine.EventVoid, true},
		{"void paid is illegal", "PAID", statemachine.EventVoid, false},
		{"void partial is illegal", "PARTIAL", statemachine.EventVoid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := statemachine.ForInvoice(tt.status)
			if got := m.Can(tt.event); got != tt.allowed {
				t.Errorf("ForInvoice(%s).Can(%s) = %v, want %v", tt.status, tt.event, got, tt.allowed)
			}
		})
	}
}

func TestQuoteMachine(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		event   string
		allowed bool
	}{
		{"send from draft", "DRAFT", statemachine.EventSend, true},
		{"approve sent", "SENT", statemachine.EventApprove, true},
		{"approve draft skips send", "DRAFT", statemachine.EventApprove, false},
		{"reject sent", "SENT", statemachine.EventReject, true},
		{"reject after approval", "APPROVED", statemachine.EventReject, true},
		{"convert approved", "APPROVED", statemachine.EventConvert, true},
		{"convert sent without approval", "SENT", statemachine.EventConvert, false},
		{"convert twice", "CONVERTED", statemachine.EventConvert, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := statemachine.ForQuote(tt.status)
			if got := m.Can(tt.event); got != tt.allowed {
				t.Errorf("ForQuote(%s).Can(%s) = %v, want %v", tt.status, tt.event, got, tt.allowed)
			}
		})
	}
}

func TestVendorBillMachine(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		event   string
		allowed bool
	}{
		{"receive draft", "DRAFT", statemachine.EventReceive, true},
		{"receive twice", "RECEIVED", statemachine.EventReceive, false},
		{"partial payment", "RECEIVED", statemachine.EventMarkPartial, true},
		{"pay off", "PARTIAL", statemachine.EventMarkPaid, true},
		{"void received", "RECEIVED", statemachine.EventVoid, true},
		{"void paid is illegal", "PAID", statemachine.EventVoid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := statemachine.ForVendorBill(tt.status)
			if got := m.Can(tt.event); got != tt.allowed {
				t.Errorf("ForVendorBill(%s).Can(%s) = %v, want %v", tt.status, tt.event, got, tt.allowed)
			}
		})
	}
}

func TestPurchaseOrderMachine(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		event   string
		allowed bool
	}{
		{"send draft", "DRAFT", statemachine.EventSend, true},
		{"confirm sent", "SENT", statemachine.EventConfirm, true},
		{"receive before confirmation", "SENT", statemachine.EventReceivePart, false},
		{"partial receipt", "CONFIRMED", statemachine.EventReceivePart, true},
		{"further partial receipt", "PARTIALLY_RECEIVED", statemachine.EventReceivePart, true},
		{"complete receipt", "PARTIALLY_RECEIVED", statemachine.EventReceiveFull, true},
		{"cancel draft", "DRAFT", statemachine.EventCancel, true},
		{"cancel sent", "SENT", statemachine.EventCancel, true},
		{"cancel confirmed is illegal", "CONFIRMED", statemachine.EventCancel, false},
		{"cancel after receipt is illegal", "PARTIALLY_RECEIVED", statemachine.EventCancel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := statemachine.ForPurchaseOrder(tt.status)
			if got := m.Can(tt.event); got != tt.allowed {
				t.Errorf("ForPurchaseOrder(%s).Can(%s) = %v, want %v", tt.status, tt.event, got, tt.allowed)
			}
		})
	}
}

func TestMachineFire(t *testing.T) {
	m := statemachine.ForInvoice("DRAFT")
	status, err := m.Fire(context.Background(), statemachine.EventSend)
	if err != nil {
		t.Fatalf("Fire(send) failed: %v", err)
	}
	if status != "SENT" {
		t.Errorf("status after send = %s, want SENT", status)
	}

	if _, err := m.Fire(context.Background(), statemachine.EventSend); err == nil {
		t.Error("expected error firing send from SENT, got nil")
	}
}
