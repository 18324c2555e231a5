// Package catalog owns the controlled product and client lists that CSV rows
// are resolved against.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Product is a commissionable catalog item.
type Product struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"` // commission rate, e.g. 12.5 for 12.5%
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Client is a known buyer.
type Client struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DBConn is the subset of pgxpool.Pool the repository needs.
type DBConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository handles catalog storage.
type Repository struct {
	db DBConn
}

// NewRepository creates a catalog repository.
func NewRepository(db DBConn) *Repository {
	return &Repository{db: db}
}

// ListProducts returns all products in name order. The order is stable so
// fuzzy-match tie-breaking is deterministic.
func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	query := `
		SELECT id, name, percentage, created_at, updated_at
		FROM products
		ORDER BY name ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Percentage, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListClients returns all clients in name order.
func (r *Repository) ListClients(ctx context.Context) ([]Client, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM clients
		ORDER BY name ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// CreateProduct inserts a product and fills in its generated fields.
func (r *Repository) CreateProduct(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (name, percentage)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query, p.Name, p.Percentage).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// CreateClient inserts a client and fills in its generated fields.
func (r *Repository) CreateClient(ctx context.Context, c *Client) error {
	query := `
		INSERT INTO clients (name)
		VALUES ($1)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query, c.Name).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// UpdateProduct renames a product or changes its commission rate.
func (r *Repository) UpdateProduct(ctx context.Context, id uuid.UUID, name string, percentage decimal.Decimal) error {
	result, err := r.db.Exec(ctx,
		`UPDATE products SET name = $2, percentage = $3, updated_at = now() WHERE id = $1`,
		id, name, percentage,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteProduct removes a product.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteClient removes a client.
func (r *Repository) DeleteClient(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
