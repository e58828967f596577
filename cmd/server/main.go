package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	webAdapter "bizledger/internal/adapters/web"
	"bizledger/internal/config"
	"bizledger/internal/core"
	"bizledger/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rules := core.NewPostingRules(pool)
	ledger := core.NewLedger(pool)

	svc := webAdapter.Services{
		Accounts:  core.NewAccountService(pool),
		Parties:   core.NewPartyService(pool, rules),
		Ledger:    ledger,
		Invoices:  core.NewInvoiceService(pool, rules, ledger),
		Quotes:    core.NewQuoteService(pool, rules),
		Bills:     core.NewVendorBillService(pool, rules, ledger),
		Orders:    core.NewPurchaseOrderService(pool),
		Payments:  core.NewPaymentService(pool, rules, ledger),
		Inventory: core.NewInventoryService(pool),
		Reports:   core.NewReportingService(pool),
	}

	handler := webAdapter.NewHandler(svc, logger, cfg.AllowedOrigins)

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	logger.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
