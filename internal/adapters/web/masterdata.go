package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"bizledger/internal/core"
)

type customerRequest struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	PaymentTermsDays int    `json:"payment_terms_days"`
}

func (r customerRequest) toInput() core.CustomerInput {
	return core.CustomerInput{
		Code:             r.Code,
		Name:             r.Name,
		Email:            r.Email,
		Phone:            r.Phone,
		Address:          r.Address,
		PaymentTermsDays: r.PaymentTermsDays,
	}
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	customer, err := h.svc.Parties.CreateCustomer(r.Context(), actor(r), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	customer, err := h.svc.Parties.UpdateCustomer(r.Context(), actor(r), chi.URLParam(r, "code"), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, customer)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.svc.Parties.GetCustomer(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, customer)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.Parties.GetCustomers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, customers)
}

type vendorRequest struct {
	Code               string `json:"code"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	PaymentTermsDays   int    `json:"payment_terms_days"`
	ExpenseAccountCode string `json:"expense_account_code"`
}

func (r vendorRequest) toInput() core.VendorInput {
	return core.VendorInput{
		Code:               r.Code,
		Name:               r.Name,
		Email:              r.Email,
		Phone:              r.Phone,
		Address:            r.Address,
		PaymentTermsDays:   r.PaymentTermsDays,
		ExpenseAccountCode: r.ExpenseAccountCode,
	}
}

func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	vendor, err := h.svc.Parties.CreateVendor(r.Context(), actor(r), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, vendor)
}

func (h *Handler) updateVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	vendor, err := h.svc.Parties.UpdateVendor(r.Context(), actor(r), chi.URLParam(r, "code"), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, vendor)
}

func (h *Handler) getVendor(w http.ResponseWriter, r *http.Request) {
	vendor, err := h.svc.Parties.GetVendor(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, vendor)
}

func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.svc.Parties.GetVendors(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, vendors)
}

type productRequest struct {
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Unit               string          `json:"unit"`
	RevenueAccountCode string          `json:"revenue_account_code"`
	ExpenseAccountCode string          `json:"expense_account_code"`
	TrackInventory     bool            `json:"track_inventory"`
}

func (r productRequest) toInput() core.ProductInput {
	return core.ProductInput{
		Code:               r.Code,
		Name:               r.Name,
		Description:        r.Description,
		UnitPrice:          r.UnitPrice,
		Unit:               r.Unit,
		RevenueAccountCode: r.RevenueAccountCode,
		ExpenseAccountCode: r.ExpenseAccountCode,
		TrackInventory:     r.TrackInventory,
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	product, err := h.svc.Parties.CreateProduct(r.Context(), actor(r), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	product, err := h.svc.Parties.UpdateProduct(r.Context(), actor(r), chi.URLParam(r, "code"), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, product)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Parties.GetProduct(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, product)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Parties.GetProducts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, products)
}
