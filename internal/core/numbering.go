package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Document number prefixes. All numbers share the PREFIX-YYYYMM-NNNN format.
const (
	PrefixJournalEntry  = "JE"
	PrefixInvoice       = "INV"
	PrefixQuote         = "QUO"
	PrefixVendorBill    = "BILL"
	PrefixPurchaseOrder = "PO"
	PrefixPayment       = "PAY"
)

// nextDocumentNumber allocates the next number for (prefix, year-month) from
// the document_sequences counter table. The upsert increments the counter row
// atomically, so concurrent allocations in the same period never collide;
// the row stays locked until the caller's transaction commits.
func nextDocumentNumber(ctx context.Context, tx pgx.Tx, prefix string, date time.Time) (string, error) {
	period := date.Format("200601")

	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (prefix, period, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, period)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, prefix, period).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("allocate %s number for period %s: %w", prefix, period, err)
	}

	return fmt.Sprintf("%s-%s-%04d", prefix, period, lastNumber), nil
}
