package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"bizledger/internal/core"
)

type salesLineRequest struct {
	ProductCode string          `json:"product_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	// UnitPrice omitted means the product's list price; zero means free.
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	TaxRate         decimal.Decimal  `json:"tax_rate"`
}

func toLineInputs(lines []salesLineRequest) []core.LineInput {
	out := make([]core.LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, core.LineInput{
			ProductCode:     l.ProductCode,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			TaxRate:         l.TaxRate,
		})
	}
	return out
}

type invoiceRequest struct {
	CustomerCode string             `json:"customer_code"`
	InvoiceDate  string             `json:"invoice_date"`
	DueDate      string             `json:"due_date"`
	Currency     string             `json:"currency"`
	ExchangeRate decimal.Decimal    `json:"exchange_rate"`
	Notes        string             `json:"notes"`
	Lines        []salesLineRequest `json:"lines"`
}

func (r invoiceRequest) toInput() core.InvoiceInput {
	return core.InvoiceInput{
		CustomerCode: r.CustomerCode,
		InvoiceDate:  r.InvoiceDate,
		DueDate:      r.DueDate,
		Currency:     r.Currency,
		ExchangeRate: r.ExchangeRate,
		Notes:        r.Notes,
		Lines:        toLineInputs(r.Lines),
	}
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	invoice, err := h.svc.Invoices.CreateInvoice(r.Context(), actor(r), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, invoice)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	invoice, err := h.svc.Invoices.UpdateDraft(r.Context(), actor(r), id, req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

func (h *Handler) sendInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	invoice, err := h.svc.Invoices.SendInvoice(r.Context(), actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	invoice, err := h.svc.Invoices.VoidInvoice(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	invoice, err := h.svc.Invoices.GetInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.svc.Invoices.GetInvoices(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoices)
}

type quoteRequest struct {
	CustomerCode string             `json:"customer_code"`
	QuoteDate    string             `json:"quote_date"`
	ValidUntil   string             `json:"valid_until"`
	Notes        string             `json:"notes"`
	Lines        []salesLineRequest `json:"lines"`
}

func (h *Handler) createQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	quote, err := h.svc.Quotes.CreateQuote(r.Context(), actor(r), core.QuoteInput{
		CustomerCode: req.CustomerCode,
		QuoteDate:    req.QuoteDate,
		ValidUntil:   req.ValidUntil,
		Notes:        req.Notes,
		Lines:        toLineInputs(req.Lines),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, quote)
}

func (h *Handler) quoteAction(w http.ResponseWriter, r *http.Request,
	fn func(actor string, id int) (*core.Quote, error)) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid quote id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	quote, err := fn(actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quote)
}

func (h *Handler) sendQuote(w http.ResponseWriter, r *http.Request) {
	h.quoteAction(w, r, func(a string, id int) (*core.Quote, error) {
		return h.svc.Quotes.SendQuote(r.Context(), a, id)
	})
}

func (h *Handler) approveQuote(w http.ResponseWriter, r *http.Request) {
	h.quoteAction(w, r, func(a string, id int) (*core.Quote, error) {
		return h.svc.Quotes.ApproveQuote(r.Context(), a, id)
	})
}

func (h *Handler) rejectQuote(w http.ResponseWriter, r *http.Request) {
	h.quoteAction(w, r, func(a string, id int) (*core.Quote, error) {
		return h.svc.Quotes.RejectQuote(r.Context(), a, id)
	})
}

func (h *Handler) convertQuote(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid quote id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	invoice, err := h.svc.Quotes.ConvertToInvoice(r.Context(), actor(r), id, h.svc.Invoices)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, invoice)
}

func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid quote id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	quote, err := h.svc.Quotes.GetQuote(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quote)
}

func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.svc.Quotes.GetQuotes(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, quotes)
}
