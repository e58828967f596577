package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CustomerInput holds the fields required to create or update a customer.
type CustomerInput struct {
	Code             string
	Name             string
	Email            string
	Phone            string
	Address          string
	PaymentTermsDays int // defaults to 30
}

// VendorInput holds the fields required to create or update a vendor.
type VendorInput struct {
	Code               string
	Name               string
	Email              string
	Phone              string
	Address            string
	PaymentTermsDays   int // defaults to 30
	ExpenseAccountCode string
}

// ProductInput holds the fields required to create or update a product.
type ProductInput struct {
	Code               string
	Name               string
	Description        string
	UnitPrice          decimal.Decimal
	Unit               string // defaults to "each"
	RevenueAccountCode string // defaults from the REVENUE posting rule
	ExpenseAccountCode string
	TrackInventory     bool
}

// PartyService manages the master data the documents reference:
// customers, vendors, and products.
type PartyService interface {
	CreateCustomer(ctx context.Context, actor string, input CustomerInput) (*Customer, error)
	UpdateCustomer(ctx context.Context, actor, code string, input CustomerInput) (*Customer, error)
	GetCustomer(ctx context.Context, code string) (*Customer, error)
	GetCustomers(ctx context.Context) ([]Customer, error)

	CreateVendor(ctx context.Context, actor string, input VendorInput) (*Vendor, error)
	UpdateVendor(ctx context.Context, actor, code string, input VendorInput) (*Vendor, error)
	GetVendor(ctx context.Context, code string) (*Vendor, error)
	GetVendors(ctx context.Context) ([]Vendor, error)

	CreateProduct(ctx context.Context, actor string, input ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, actor, code string, input ProductInput) (*Product, error)
	GetProduct(ctx context.Context, code string) (*Product, error)
	GetProducts(ctx context.Context) ([]Product, error)
}

type partyService struct {
	pool  *pgxpool.Pool
	rules PostingRules
}

// NewPartyService constructs a PartyService backed by PostgreSQL.
func NewPartyService(pool *pgxpool.Pool, rules PostingRules) PartyService {
	return &partyService{pool: pool, rules: rules}
}

const customerColumns = `id, code, name,
	COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
	payment_terms_days, created_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	c := &Customer{}
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.PaymentTermsDays, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *partyService) CreateCustomer(ctx context.Context, actor string, input CustomerInput) (*Customer, error) {
	if input.Code == "" || input.Name == "" {
		return nil, errors.New("customer code and name are required")
	}
	terms := input.PaymentTermsDays
	if terms == 0 {
		terms = 30
	}

	c, err := scanCustomer(s.pool.QueryRow(ctx, `
		INSERT INTO customers (code, name, email, phone, address, payment_terms_days, created_by)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		RETURNING `+customerColumns,
		input.Code, input.Name, input.Email, input.Phone, input.Address, terms, actor,
	))
	if err != nil {
		return nil, fmt.Errorf("create customer %q: %w", input.Code, err)
	}
	return c, nil
}

func (s *partyService) UpdateCustomer(ctx context.Context, actor, code string, input CustomerInput) (*Customer, error) {
	terms := input.PaymentTermsDays
	if terms == 0 {
		terms = 30
	}

	c, err := scanCustomer(s.pool.QueryRow(ctx, `
		UPDATE customers
		SET name = $1, email = NULLIF($2, ''), phone = NULLIF($3, ''), address = NULLIF($4, ''),
		    payment_terms_days = $5, updated_by = $6, updated_at = NOW()
		WHERE code = $7 AND deleted_at IS NULL
		RETURNING `+customerColumns,
		input.Name, input.Email, input.Phone, input.Address, terms, actor, code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("update customer %q: %w", code, err)
	}
	return c, nil
}

func (s *partyService) GetCustomer(ctx context.Context, code string) (*Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE code = $1 AND deleted_at IS NULL`, code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch customer %q: %w", code, err)
	}
	return c, nil
}

func (s *partyService) GetCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE deleted_at IS NULL ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("get customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address,
			&c.PaymentTermsDays, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, nil
}

const vendorColumns = `id, code, name,
	COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
	payment_terms_days, COALESCE(expense_account_code, ''), created_at`

func scanVendor(row pgx.Row) (*Vendor, error) {
	v := &Vendor{}
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.Email, &v.Phone, &v.Address,
		&v.PaymentTermsDays, &v.ExpenseAccountCode, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *partyService) CreateVendor(ctx context.Context, actor string, input VendorInput) (*Vendor, error) {
	if input.Code == "" || input.Name == "" {
		return nil, errors.New("vendor code and name are required")
	}
	terms := input.PaymentTermsDays
	if terms == 0 {
		terms = 30
	}

	v, err := scanVendor(s.pool.QueryRow(ctx, `
		INSERT INTO vendors (code, name, email, phone, address, payment_terms_days, expense_account_code, created_by)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8)
		RETURNING `+vendorColumns,
		input.Code, input.Name, input.Email, input.Phone, input.Address, terms,
		input.ExpenseAccountCode, actor,
	))
	if err != nil {
		return nil, fmt.Errorf("create vendor %q: %w", input.Code, err)
	}
	return v, nil
}

func (s *partyService) UpdateVendor(ctx context.Context, actor, code string, input VendorInput) (*Vendor, error) {
	terms := input.PaymentTermsDays
	if terms == 0 {
		terms = 30
	}

	v, err := scanVendor(s.pool.QueryRow(ctx, `
		UPDATE vendors
		SET name = $1, email = NULLIF($2, ''), phone = NULLIF($3, ''), address = NULLIF($4, ''),
		    payment_terms_days = $5, expense_account_code = NULLIF($6, ''), updated_by = $7, updated_at = NOW()
		WHERE code = $8 AND deleted_at IS NULL
		RETURNING `+vendorColumns,
		input.Name, input.Email, input.Phone, input.Address, terms,
		input.ExpenseAccountCode, actor, code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("update vendor %q: %w", code, err)
	}
	return v, nil
}

func (s *partyService) GetVendor(ctx context.Context, code string) (*Vendor, error) {
	v, err := scanVendor(s.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE code = $1 AND deleted_at IS NULL`, code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch vendor %q: %w", code, err)
	}
	return v, nil
}

func (s *partyService) GetVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE deleted_at IS NULL ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("get vendors: %w", err)
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Code, &v.Name, &v.Email, &v.Phone, &v.Address,
			&v.PaymentTermsDays, &v.ExpenseAccountCode, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

const productColumns = `id, code, name, COALESCE(description, ''),
	unit_price, unit, revenue_account_code, COALESCE(expense_account_code, ''),
	track_inventory, is_active, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description,
		&p.UnitPrice, &p.Unit, &p.RevenueAccountCode, &p.ExpenseAccountCode,
		&p.TrackInventory, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *partyService) CreateProduct(ctx context.Context, actor string, input ProductInput) (*Product, error) {
	if input.Code == "" || input.Name == "" {
		return nil, errors.New("product code and name are required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, errors.New("unit price cannot be negative")
	}
	unit := input.Unit
	if unit == "" {
		unit = "each"
	}
	revenueCode := input.RevenueAccountCode
	if revenueCode == "" {
		var err error
		revenueCode, err = s.rules.Resolve(ctx, RoleRevenue)
		if err != nil {
			return nil, err
		}
	}

	p, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, description, unit_price, unit,
		                      revenue_account_code, expense_account_code, track_inventory, created_by)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), $8, $9)
		RETURNING `+productColumns,
		input.Code, input.Name, input.Description, input.UnitPrice, unit,
		revenueCode, input.ExpenseAccountCode, input.TrackInventory, actor,
	))
	if err != nil {
		return nil, fmt.Errorf("create product %q: %w", input.Code, err)
	}
	return p, nil
}

func (s *partyService) UpdateProduct(ctx context.Context, actor, code string, input ProductInput) (*Product, error) {
	if input.UnitPrice.IsNegative() {
		return nil, errors.New("unit price cannot be negative")
	}
	unit := input.Unit
	if unit == "" {
		unit = "each"
	}
	revenueCode := input.RevenueAccountCode
	if revenueCode == "" {
		var err error
		revenueCode, err = s.rules.Resolve(ctx, RoleRevenue)
		if err != nil {
			return nil, err
		}
	}

	p, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $1, description = NULLIF($2, ''), unit_price = $3, unit = $4,
		    revenue_account_code = $5, expense_account_code = NULLIF($6, ''),
		    track_inventory = $7, updated_by = $8, updated_at = NOW()
		WHERE code = $9 AND deleted_at IS NULL
		RETURNING `+productColumns,
		input.Name, input.Description, input.UnitPrice, unit,
		revenueCode, input.ExpenseAccountCode, input.TrackInventory, actor, code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("update product %q: %w", code, err)
	}
	return p, nil
}

func (s *partyService) GetProduct(ctx context.Context, code string) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE code = $1 AND deleted_at IS NULL`, code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch product %q: %w", code, err)
	}
	return p, nil
}

func (s *partyService) GetProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE deleted_at IS NULL ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description,
			&p.UnitPrice, &p.Unit, &p.RevenueAccountCode, &p.ExpenseAccountCode,
			&p.TrackInventory, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}
