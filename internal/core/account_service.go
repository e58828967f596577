package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountService manages the chart of accounts. Accounts are soft-deleted:
// a tombstoned account keeps its history but rejects new postings.
type AccountService interface {
	CreateAccount(ctx context.Context, actor string, input AccountInput) (*Account, error)
	// UpdateAccount renames an account. Code and type are immutable.
	UpdateAccount(ctx context.Context, actor, code, name string) (*Account, error)
	// DeleteAccount tombstones an account. System accounts and accounts
	// with journal lines cannot be deleted.
	DeleteAccount(ctx context.Context, actor, code string) error
	GetAccount(ctx context.Context, code string) (*Account, error)
	// GetAccounts returns live accounts ordered by code.
	GetAccounts(ctx context.Context) ([]Account, error)
}

type accountService struct {
	pool *pgxpool.Pool
}

// NewAccountService constructs an AccountService backed by PostgreSQL.
func NewAccountService(pool *pgxpool.Pool) AccountService {
	return &accountService{pool: pool}
}

func (s *accountService) CreateAccount(ctx context.Context, actor string, input AccountInput) (*Account, error) {
	if input.Code == "" {
		return nil, errors.New("account code is required")
	}
	if input.Name == "" {
		return nil, errors.New("account name is required")
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("invalid account type %q", input.Type)
	}

	var parentID *int
	if input.ParentCode != "" {
		parent, err := s.GetAccount(ctx, input.ParentCode)
		if err != nil {
			return nil, fmt.Errorf("parent account: %w", err)
		}
		if parent.Type != input.Type {
			return nil, fmt.Errorf("parent account %s is %s, child must match", parent.Code, parent.Type)
		}
		parentID = &parent.ID
	}

	a := &Account{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (code, name, type, normal_balance, parent_id, is_system, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, code, name, type, normal_balance, parent_id, is_active, is_system, created_at
	`, input.Code, input.Name, input.Type, input.Type.NormalBalance(), parentID, input.IsSystem, actor).Scan(
		&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalBalance,
		&a.ParentID, &a.IsActive, &a.IsSystem, &a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create account %q: %w", input.Code, err)
	}
	return a, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, actor, code, name string) (*Account, error) {
	if name == "" {
		return nil, errors.New("account name is required")
	}

	a := &Account{}
	err := s.pool.QueryRow(ctx, `
		UPDATE accounts SET name = $1, updated_by = $2, updated_at = NOW()
		WHERE code = $3 AND deleted_at IS NULL
		RETURNING id, code, name, type, normal_balance, parent_id, is_active, is_system, created_at
	`, name, actor, code).Scan(
		&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalBalance,
		&a.ParentID, &a.IsActive, &a.IsSystem, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account code %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("update account %s: %w", code, err)
	}
	return a, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, actor, code string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int
	var isSystem bool
	err = tx.QueryRow(ctx,
		"SELECT id, is_system FROM accounts WHERE code = $1 AND deleted_at IS NULL FOR UPDATE", code,
	).Scan(&id, &isSystem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("account code %s: %w", code, ErrNotFound)
		}
		return fmt.Errorf("fetch account %s: %w", code, err)
	}

	if isSystem {
		return fmt.Errorf("account %s is a system account and cannot be deleted", code)
	}

	var lineCount int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM journal_entry_lines WHERE account_id = $1", id,
	).Scan(&lineCount)
	if err != nil {
		return fmt.Errorf("count lines for account %s: %w", code, err)
	}
	if lineCount > 0 {
		return fmt.Errorf("account %s has %d journal lines and cannot be deleted", code, lineCount)
	}

	_, err = tx.Exec(ctx, `
		UPDATE accounts SET deleted_at = NOW(), is_active = false, updated_by = $1, updated_at = NOW()
		WHERE id = $2
	`, actor, id)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", code, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *accountService) GetAccount(ctx context.Context, code string) (*Account, error) {
	a := &Account{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, type, normal_balance, parent_id, is_active, is_system, created_at
		FROM accounts
		WHERE code = $1 AND deleted_at IS NULL
	`, code).Scan(
		&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalBalance,
		&a.ParentID, &a.IsActive, &a.IsSystem, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account code %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch account %s: %w", code, err)
	}
	return a, nil
}

func (s *accountService) GetAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, type, normal_balance, parent_id, is_active, is_system, created_at
		FROM accounts
		WHERE deleted_at IS NULL
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("get accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(
			&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalBalance,
			&a.ParentID, &a.IsActive, &a.IsSystem, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}
