package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Posting-rule roles. Each maps to a GL account code via the posting_rules
// table so that document services never hardcode account numbers.
const (
	RoleAR         = "AR"          // accounts receivable control
	RoleAP         = "AP"          // accounts payable control
	RoleRevenue    = "REVENUE"     // default sales revenue
	RoleTaxPayable = "TAX_PAYABLE" // tax collected on sales
	RoleTaxInput   = "TAX_INPUT"   // tax paid on purchases
	RoleBank       = "BANK"        // default bank/cash
	RoleInventory  = "INVENTORY"   // stock asset
)

// PostingRules resolves GL account codes for posting roles.
// A missing rule is a fatal setup error, surfaced as MissingConfigurationError.
type PostingRules interface {
	Resolve(ctx context.Context, role string) (string, error)
}

type postingRules struct {
	pool *pgxpool.Pool
}

// NewPostingRules constructs a PostingRules backed by the posting_rules table.
func NewPostingRules(pool *pgxpool.Pool) PostingRules {
	return &postingRules{pool: pool}
}

func (r *postingRules) Resolve(ctx context.Context, role string) (string, error) {
	var accountCode string
	err := r.pool.QueryRow(ctx,
		"SELECT account_code FROM posting_rules WHERE role = $1", role,
	).Scan(&accountCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &MissingConfigurationError{Role: role}
		}
		return "", fmt.Errorf("resolve posting rule %q: %w", role, err)
	}
	return accountCode, nil
}
