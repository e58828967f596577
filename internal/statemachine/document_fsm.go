// Package statemachine defines the status graphs for commercial documents.
// Services consult a machine before persisting any transition; payment-driven
// PARTIAL/PAID flips are modelled as events so their legality is checked the
// same way as user actions.
package statemachine

import (
	"context"

	"github.com/looplab/fsm"
)

// Events shared across document machines.
const (
	EventSend        = "send"
	EventApprove     = "approve"
	EventReject      = "reject"
	EventConvert     = "convert"
	EventReceive     = "receive"
	EventConfirm     = "confirm"
	EventCancel      = "cancel"
	EventVoid        = "void"
	EventMarkPartial = "mark_partial"
	EventMarkPaid    = "mark_paid"
	EventReopen      = "reopen"
	EventReceivePart = "receive_partial"
	EventReceiveFull = "receive_full"
)

// Machine wraps a looplab FSM seeded with a document's current status.
type Machine struct {
	fsm *fsm.FSM
}

// Can reports whether the event is legal from the current status.
func (m *Machine) Can(event string) bool {
	return m.fsm.Can(event)
}

// Fire applies the event and returns the resulting status.
func (m *Machine) Fire(ctx context.Context, event string) (string, error) {
	if err := m.fsm.Event(ctx, event); err != nil {
		return m.fsm.Current(), err
	}
	return m.fsm.Current(), nil
}

// Current returns the machine's current status.
func (m *Machine) Current() string {
	return m.fsm.Current()
}

// ForInvoice builds the invoice machine.
// DRAFT → SENT → {PARTIAL ⇄ PAID} via allocations; VOID only while unpaid.
// OVERDUE is a derived attribute, never a stored state.
func ForInvoice(status string) *Machine {
	return &Machine{fsm: fsm.NewFSM(
		status,
		fsm.Events{
			{Name: EventSend, Src: []string{"DRAFT"}, Dst: "SENT"},
			{Name: EventMarkPartial, Src: []string{"SENT", "PAID"}, Dst: "PARTIAL"},
			{Name: EventMarkPaid, Src: []string{"SENT", "PARTIAL"}, Dst: "PAID"},
			{Name: EventReopen, Src: []string{"PARTIAL", "PAID"}, Dst: "SENT"},
			{Name: EventVoid, Src: []string{"DRAFT", "SENT"}, Dst: "VOID"},
		},
		fsm.Callbacks{},
	)}
}

// ForQuote builds the quote machine.
// EXPIRED is computed from valid_until, never stored.
func ForQuote(status string) *Machine {
	return &Machine{fsm: fsm.NewFSM(
		status,
		fsm.Events{
			{Name: EventSend, Src: []string{"DRAFT"}, Dst: "SENT"},
			{Name: EventApprove, Src: []string{"SENT"}, Dst: "APPROVED"},
			{Name: EventReject, Src: []string{"SENT", "APPROVED"}, Dst: "REJECTED"},
			{Name: EventConvert, Src: []string{"APPROVED"}, Dst: "CONVERTED"},
		},
		fsm.Callbacks{},
	)}
}

// ForVendorBill builds the vendor bill machine.
func ForVendorBill(status string) *Machine {
	return &Machine{fsm: fsm.NewFSM(
		status,
		fsm.Events{
			{Name: EventReceive, Src: []string{"DRAFT"}, Dst: "RECEIVED"},
			{Name: EventMarkPartial, Src: []string{"RECEIVED", "PAID"}, Dst: "PARTIAL"},
			{Name: EventMarkPaid, Src: []string{"RECEIVED", "PARTIAL"}, Dst: "PAID"},
			{Name: EventReopen, Src: []string{"PARTIAL", "PAID"}, Dst: "RECEIVED"},
			{Name: EventVoid, Src: []string{"DRAFT", "RECEIVED"}, Dst: "VOID"},
		},
		fsm.Callbacks{},
	)}
}

// ForPurchaseOrder builds the purchase order machine.
func ForPurchaseOrder(status string) *Machine {
	return &Machine{fsm: fsm.NewFSM(
		status,
		fsm.Events{
			{Name: EventSend, Src: []string{"DRAFT"}, Dst: "SENT"},
			{Name: EventConfirm, Src: []string{"SENT"}, Dst: "CONFIRMED"},
			{Name: EventReceivePart, Src: []string{"CONFIRMED", "PARTIALLY_RECEIVED"}, Dst: "PARTIALLY_RECEIVED"},
			{Name: EventReceiveFull, Src: []string{"CONFIRMED", "PARTIALLY_RECEIVED"}, Dst: "RECEIVED"},
			{Name: EventCancel, Src: []string{"DRAFT", "SENT"}, Dst: "CANCELLED"},
		},
		fsm.Callbacks{},
	)}
}
