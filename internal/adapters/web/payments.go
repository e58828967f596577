package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"bizledger/internal/core"
)

type paymentRequest struct {
	CustomerCode    string          `json:"customer_code"`
	PaymentDate     string          `json:"payment_date"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	Reference       string          `json:"reference"`
	BankAccountCode string          `json:"bank_account_code"`
	Notes           string          `json:"notes"`
	AutoAllocate    bool            `json:"auto_allocate"`
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	payment, err := h.svc.Payments.CreatePayment(r.Context(), actor(r), core.PaymentInput{
		CustomerCode:    req.CustomerCode,
		PaymentDate:     req.PaymentDate,
		Amount:          req.Amount,
		Method:          req.Method,
		Reference:       req.Reference,
		BankAccountCode: req.BankAccountCode,
		Notes:           req.Notes,
		AutoAllocate:    req.AutoAllocate,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, payment)
}

func (h *Handler) allocatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid payment id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req struct {
		InvoiceID int             `json:"invoice_id"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	payment, err := h.svc.Payments.Allocate(r.Context(), actor(r), id, req.InvoiceID, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payment)
}

func (h *Handler) autoAllocatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid payment id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	payment, err := h.svc.Payments.AutoAllocate(r.Context(), actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payment)
}

func (h *Handler) deallocatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid payment id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	invoiceID, err := idParam(r, "invoiceID")
	if err != nil {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	payment, err := h.svc.Payments.Deallocate(r.Context(), actor(r), id, invoiceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payment)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid payment id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	payment, err := h.svc.Payments.GetPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payment)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.Payments.GetPayments(r.Context(), r.URL.Query().Get("customer"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payments)
}
