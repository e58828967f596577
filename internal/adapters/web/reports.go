package web

import "net/http"

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Reports.TrialBalance(r.Context(), r.URL.Query().Get("as_of"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.svc.Reports.ProfitAndLoss(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Reports.BalanceSheet(r.Context(), r.URL.Query().Get("as_of"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) arAging(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Reports.ARAging(r.Context(), r.URL.Query().Get("as_of"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) customerStatement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customer := q.Get("customer")
	if customer == "" {
		writeError(w, r, "customer query parameter is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	report, err := h.svc.Reports.CustomerStatement(r.Context(), customer, q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}
