package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"bizledger/internal/core"
)

type costLineRequest struct {
	ProductCode        string          `json:"product_code"`
	Description        string          `json:"description"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	ExpenseAccountCode string          `json:"expense_account_code"`
}

func toCostLineInputs(lines []costLineRequest) []core.CostLineInput {
	out := make([]core.CostLineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, core.CostLineInput{
			ProductCode:        l.ProductCode,
			Description:        l.Description,
			Quantity:           l.Quantity,
			UnitCost:           l.UnitCost,
			TaxRate:            l.TaxRate,
			ExpenseAccountCode: l.ExpenseAccountCode,
		})
	}
	return out
}

type billRequest struct {
	VendorCode      string            `json:"vendor_code"`
	VendorReference string            `json:"vendor_reference"`
	BillDate        string            `json:"bill_date"`
	DueDate         string            `json:"due_date"`
	Notes           string            `json:"notes"`
	Lines           []costLineRequest `json:"lines"`
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	bill, err := h.svc.Bills.CreateBill(r.Context(), actor(r), core.BillInput{
		VendorCode:      req.VendorCode,
		VendorReference: req.VendorReference,
		BillDate:        req.BillDate,
		DueDate:         req.DueDate,
		Notes:           req.Notes,
		Lines:           toCostLineInputs(req.Lines),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, bill)
}

func (h *Handler) receiveBill(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid bill id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	bill, err := h.svc.Bills.ReceiveBill(r.Context(), actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bill)
}

func (h *Handler) payBill(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid bill id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req struct {
		Amount          decimal.Decimal `json:"amount"`
		BankAccountCode string          `json:"bank_account_code"`
		PaymentDate     string          `json:"payment_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	bill, err := h.svc.Bills.RecordPayment(r.Context(), actor(r), id, req.Amount, req.BankAccountCode, req.PaymentDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bill)
}

func (h *Handler) voidBill(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid bill id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	bill, err := h.svc.Bills.VoidBill(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bill)
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid bill id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	bill, err := h.svc.Bills.GetBill(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bill)
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.svc.Bills.GetBills(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bills)
}

type purchaseOrderRequest struct {
	VendorCode   string            `json:"vendor_code"`
	OrderDate    string            `json:"order_date"`
	ExpectedDate string            `json:"expected_date"`
	Notes        string            `json:"notes"`
	Lines        []costLineRequest `json:"lines"`
}

func (h *Handler) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req purchaseOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.Orders.CreateOrder(r.Context(), actor(r), core.PurchaseOrderInput{
		VendorCode:   req.VendorCode,
		OrderDate:    req.OrderDate,
		ExpectedDate: req.ExpectedDate,
		Notes:        req.Notes,
		Lines:        toCostLineInputs(req.Lines),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, order)
}

func (h *Handler) sendPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid order id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.Orders.SendOrder(r.Context(), actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) confirmPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid order id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.Orders.ConfirmOrder(r.Context(), actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) receivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid order id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req struct {
		LocationCode string `json:"location_code"`
		Receipts     []struct {
			ItemID   int             `json:"item_id"`
			Quantity decimal.Decimal `json:"quantity"`
		} `json:"receipts"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	receipts := make([]core.ReceiptLine, 0, len(req.Receipts))
	for _, rl := range req.Receipts {
		receipts = append(receipts, core.ReceiptLine{ItemID: rl.ItemID, Quantity: rl.Quantity})
	}
	order, err := h.svc.Orders.ReceiveItems(r.Context(), actor(r), id, receipts, req.LocationCode, h.svc.Inventory)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) cancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid order id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.Orders.CancelOrder(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) billPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid order id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	bill, err := h.svc.Orders.CreateBillFromOrder(r.Context(), actor(r), id, h.svc.Bills)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, bill)
}

func (h *Handler) getPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, "invalid order id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	order, err := h.svc.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.GetOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, orders)
}
