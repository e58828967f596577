package web

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

type stockMoveRequest struct {
	ProductCode  string          `json:"product_code"`
	LocationCode string          `json:"location_code"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reference    string          `json:"reference"`
}

func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	var req stockMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	level, err := h.svc.Inventory.Receive(r.Context(), actor(r), req.ProductCode, req.LocationCode, req.Quantity, req.Reference)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, level)
}

func (h *Handler) issueStock(w http.ResponseWriter, r *http.Request) {
	var req stockMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	level, err := h.svc.Inventory.Issue(r.Context(), actor(r), req.ProductCode, req.LocationCode, req.Quantity, req.Reference)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, level)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductCode  string          `json:"product_code"`
		LocationCode string          `json:"location_code"`
		Delta        decimal.Decimal `json:"delta"`
		Reason       string          `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	level, err := h.svc.Inventory.Adjust(r.Context(), actor(r), req.ProductCode, req.LocationCode, req.Delta, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, level)
}

func (h *Handler) reserveStock(w http.ResponseWriter, r *http.Request) {
	var req stockMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	level, err := h.svc.Inventory.Reserve(r.Context(), actor(r), req.ProductCode, req.LocationCode, req.Quantity, req.Reference)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, level)
}

func (h *Handler) releaseStock(w http.ResponseWriter, r *http.Request) {
	var req stockMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	level, err := h.svc.Inventory.Release(r.Context(), actor(r), req.ProductCode, req.LocationCode, req.Quantity, req.Reference)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, level)
}

func (h *Handler) transferStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductCode  string          `json:"product_code"`
		FromLocation string          `json:"from_location"`
		ToLocation   string          `json:"to_location"`
		Quantity     decimal.Decimal `json:"quantity"`
		Reference    string          `json:"reference"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.Inventory.Transfer(r.Context(), actor(r), req.ProductCode, req.FromLocation, req.ToLocation, req.Quantity, req.Reference); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "transferred"})
}

func (h *Handler) listStockLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.svc.Inventory.GetStockLevels(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, levels)
}

func (h *Handler) listStockMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.svc.Inventory.GetMovements(r.Context(), r.URL.Query().Get("product"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, movements)
}
