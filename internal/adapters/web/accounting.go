package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"bizledger/internal/core"
)

func idParam(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}

type accountRequest struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ParentCode string `json:"parent_code"`
	IsSystem   bool   `json:"is_system"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	account, err := h.svc.Accounts.CreateAccount(r.Context(), actor(r), core.AccountInput{
		Code:       req.Code,
		Name:       req.Name,
		Type:       core.AccountType(req.Type),
		ParentCode: req.ParentCode,
		IsSystem:   req.IsSystem,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, account)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.Accounts.GetAccounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, accounts)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.Accounts.GetAccount(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, account)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	account, err := h.svc.Accounts.UpdateAccount(r.Context(), actor(r), chi.URLParam(r, "code"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, account)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Accounts.DeleteAccount(r.Context(), actor(r), chi.URLParam(r, "code")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) accountBalance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	balance, err := h.svc.Ledger.AccountBalance(r.Context(), code, r.URL.Query().Get("as_of"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"account_code": code, "balance": balance})
}

type entryLineRequest struct {
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

type entryRequest struct {
	EntryDate   string             `json:"entry_date"`
	Description string             `json:"description"`
	Lines       []entryLineRequest `json:"lines"`
}

func (h *Handler) createJournalEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	input := core.EntryInput{
		EntryDate:   req.EntryDate,
		Description: req.Description,
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, core.EntryLineInput{
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	entry, err := h.svc.Ledger.CreateEntry(r.Context(), actor(r), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, entry)
}

func (h *Handler) listJournalEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Ledger.ListEntries(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, entries)
}

func (h *Handler) getJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid entry id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	entry, err := h.svc.Ledger.GetEntry(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, entry)
}

func (h *Handler) postJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid entry id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	posted, err := h.svc.Ledger.PostEntry(r.Context(), actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"entry_id": id, "posted": posted})
}

func (h *Handler) reverseJournalEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid entry id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	reversal, err := h.svc.Ledger.ReverseEntry(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, reversal)
}
