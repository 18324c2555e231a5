// Package invoice persists committed invoices and computes commission
// breakdowns over them.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ErrDuplicateNCF is returned when an invoice with the same NCF suffix is
// already on record. Duplicates are a hard rejection, never an overwrite.
var ErrDuplicateNCF = errors.New("invoice with this NCF already exists")

// Line is one line item of an invoice-creation command.
type Line struct {
	ProductID uuid.UUID
	Quantity  float64
	UnitPrice float64
	IsOffer   bool
}

// CreateCommand is a finalized invoice ready for persistence.
type CreateCommand struct {
	NCFSuffix string
	IssuedOn  time.Time
	ClientID  *uuid.UUID
	Lines     []Line
}

// Invoice is a persisted invoice header.
type Invoice struct {
	ID        uuid.UUID
	NCFSuffix string
	IssuedOn  time.Time
	ClientID  *uuid.UUID
	CreatedAt time.Time
}

// StoredLine is a persisted invoice line.
type StoredLine struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	IsOffer   bool
	Position  int
}

// DBConn is the subset of pgxpool.Pool the repository needs.
type DBConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository struct {
	db DBConn
}

func NewRepository(db DBConn) *Repository {
	return &Repository{db: db}
}

// Create persists one invoice with its lines in a single transaction. A
// unique-constraint hit on the NCF suffix maps to ErrDuplicateNCF.
func (r *Repository) Create(ctx context.Context, cmd CreateCommand) (*Invoice, error) {
	if cmd.NCFSuffix == "" {
		return nil, fmt.Errorf("NCF suffix is required")
	}
	if len(cmd.Lines) == 0 {
		return nil, fmt.Errorf("invoice must have at least one line")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv := &Invoice{NCFSuffix: cmd.NCFSuffix, IssuedOn: cmd.IssuedOn, ClientID: cmd.ClientID}
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (ncf_suffix, issued_on, client_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		cmd.NCFSuffix, cmd.IssuedOn, cmd.ClientID,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("NCF %s: %w", cmd.NCFSuffix, ErrDuplicateNCF)
		}
		return nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	for i, line := range cmd.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_lines (invoice_id, product_id, quantity, unit_price, is_offer, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			inv.ID, line.ProductID,
			decimal.NewFromFloat(line.Quantity), decimal.NewFromFloat(line.UnitPrice),
			line.IsOffer, i,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert invoice line %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice: %w", err)
	}
	return inv, nil
}

// ExistsByNCF reports whether an invoice with the given suffix is on record.
func (r *Repository) ExistsByNCF(ctx context.Context, ncfSuffix string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM invoices WHERE ncf_suffix = $1)`, ncfSuffix,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check NCF existence: %w", err)
	}
	return exists, nil
}

// GetByNCF fetches one invoice header by NCF suffix.
func (r *Repository) GetByNCF(ctx context.Context, ncfSuffix string) (*Invoice, error) {
	var inv Invoice
	err := r.db.QueryRow(ctx, `
		SELECT id, ncf_suffix, issued_on, client_id, created_at
		FROM invoices WHERE ncf_suffix = $1`, ncfSuffix,
	).Scan(&inv.ID, &inv.NCFSuffix, &inv.IssuedOn, &inv.ClientID, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice with NCF %s not found: %w", ncfSuffix, err)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &inv, nil
}

// ListLines fetches all lines of an invoice in position order.
func (r *Repository) ListLines(ctx context.Context, invoiceID uuid.UUID) ([]StoredLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, product_id, quantity, unit_price, is_offer, position
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY position ASC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []StoredLine
	for rows.Next() {
		var l StoredLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.IsOffer, &l.Position); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice lines: %w", err)
	}
	return lines, nil
}

// ListBetween fetches invoice headers issued within [from, to].
func (r *Repository) ListBetween(ctx context.Context, from, to time.Time) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ncf_suffix, issued_on, client_id, created_at
		FROM invoices
		WHERE issued_on >= $1 AND issued_on <= $2
		ORDER BY issued_on ASC, ncf_suffix ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.NCFSuffix, &inv.IssuedOn, &inv.ClientID, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return invoices, nil
}
