package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bizledger/internal/core"
)

// Services bundles everything the HTTP layer exposes.
type Services struct {
	Accounts  core.AccountService
	Parties   core.PartyService
	Ledger    core.LedgerService
	Invoices  core.InvoiceService
	Quotes    core.QuoteService
	Bills     core.VendorBillService
	Orders    core.PurchaseOrderService
	Payments  core.PaymentService
	Inventory core.InventoryService
	Reports   core.ReportingService
}

// Handler holds the services and the chi router.
type Handler struct {
	svc Services
}

const maxRequestBody = 1 << 20 // 1 MiB

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc Services, log *slog.Logger, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(maxRequestBody))

	r.Get("/api/health", h.health)

	// ── Chart of accounts & ledger ────────────────────────────────────────────
	r.Route("/api/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Get("/{code}", h.getAccount)
		r.Put("/{code}", h.updateAccount)
		r.Delete("/{code}", h.deleteAccount)
		r.Get("/{code}/balance", h.accountBalance)
	})
	r.Route("/api/journal-entries", func(r chi.Router) {
		r.Get("/", h.listJournalEntries)
		r.Post("/", h.createJournalEntry)
		r.Get("/{id}", h.getJournalEntry)
		r.Post("/{id}/post", h.postJournalEntry)
		r.Post("/{id}/reverse", h.reverseJournalEntry)
	})

	// ── Master data ───────────────────────────────────────────────────────────
	r.Route("/api/customers", func(r chi.Router) {
		r.Get("/", h.listCustomers)
		r.Post("/", h.createCustomer)
		r.Get("/{code}", h.getCustomer)
		r.Put("/{code}", h.updateCustomer)
	})
	r.Route("/api/vendors", func(r chi.Router) {
		r.Get("/", h.listVendors)
		r.Post("/", h.createVendor)
		r.Get("/{code}", h.getVendor)
		r.Put("/{code}", h.updateVendor)
	})
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{code}", h.getProduct)
		r.Put("/{code}", h.updateProduct)
	})

	// ── Sales documents ───────────────────────────────────────────────────────
	r.Route("/api/quotes", func(r chi.Router) {
		r.Get("/", h.listQuotes)
		r.Post("/", h.createQuote)
		r.Get("/{id}", h.getQuote)
		r.Post("/{id}/send", h.sendQuote)
		r.Post("/{id}/approve", h.approveQuote)
		r.Post("/{id}/reject", h.rejectQuote)
		r.Post("/{id}/convert", h.convertQuote)
	})
	r.Route("/api/invoices", func(r chi.Router) {
		r.Get("/", h.listInvoices)
		r.Post("/", h.createInvoice)
		r.Get("/{id}", h.getInvoice)
		r.Put("/{id}", h.updateInvoice)
		r.Post("/{id}/send", h.sendInvoice)
		r.Post("/{id}/void", h.voidInvoice)
	})

	// ── Purchase documents ────────────────────────────────────────────────────
	r.Route("/api/purchase-orders", func(r chi.Router) {
		r.Get("/", h.listPurchaseOrders)
		r.Post("/", h.createPurchaseOrder)
		r.Get("/{id}", h.getPurchaseOrder)
		r.Post("/{id}/send", h.sendPurchaseOrder)
		r.Post("/{id}/confirm", h.confirmPurchaseOrder)
		r.Post("/{id}/receive", h.receivePurchaseOrder)
		r.Post("/{id}/cancel", h.cancelPurchaseOrder)
		r.Post("/{id}/bill", h.billPurchaseOrder)
	})
	r.Route("/api/bills", func(r chi.Router) {
		r.Get("/", h.listBills)
		r.Post("/", h.createBill)
		r.Get("/{id}", h.getBill)
		r.Post("/{id}/receive", h.receiveBill)
		r.Post("/{id}/payments", h.payBill)
		r.Post("/{id}/void", h.voidBill)
	})

	// ── Customer payments ─────────────────────────────────────────────────────
	r.Route("/api/payments", func(r chi.Router) {
		r.Get("/", h.listPayments)
		r.Post("/", h.createPayment)
		r.Get("/{id}", h.getPayment)
		r.Post("/{id}/allocations", h.allocatePayment)
		r.Post("/{id}/auto-allocate", h.autoAllocatePayment)
		r.Delete("/{id}/allocations/{invoiceID}", h.deallocatePayment)
	})

	// ── Inventory ─────────────────────────────────────────────────────────────
	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/levels", h.listStockLevels)
		r.Get("/movements", h.listStockMovements)
		r.Post("/receive", h.receiveStock)
		r.Post("/issue", h.issueStock)
		r.Post("/adjust", h.adjustStock)
		r.Post("/reserve", h.reserveStock)
		r.Post("/release", h.releaseStock)
		r.Post("/transfer", h.transferStock)
	})

	// ── Reports ───────────────────────────────────────────────────────────────
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/trial-balance", h.trialBalance)
		r.Get("/profit-loss", h.profitAndLoss)
		r.Get("/balance-sheet", h.balanceSheet)
		r.Get("/ar-aging", h.arAging)
		r.Get("/customer-statement", h.customerStatement)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// actor identifies who performed a mutation for the audit trail. Clients
// pass it in the X-Actor header; absent means an unattributed API call.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "api"
}
