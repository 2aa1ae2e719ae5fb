package postgres

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/shopmesh/shopmesh/internal/domain/product"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, price::text, stock_quantity, version, created_at, updated_at
		 FROM products ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("product repository: list: %w", err)
	}
	defer rows.Close()

	var out []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("product repository: list scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, price::text, stock_quantity, version, created_at, updated_at
		 FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("product repository: get: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, name, description, price, stock_quantity, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.Price.StringFixed(2), p.StockQuantity, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("product repository: create: %w", err)
	}
	return nil
}

// Update rewrites the catalog fields under an optimistic version check so a
// concurrent reconciler adjustment is never silently overwritten.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, stock_quantity = $5,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $6`,
		p.ID, p.Name, p.Description, p.Price.StringFixed(2), p.StockQuantity, p.Version,
	)
	if err != nil {
		return fmt.Errorf("product repository: update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("product repository: delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) ApplyDelta(ctx context.Context, eventID, productID string, delta int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("product repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Claim the idempotency token first; a duplicate delivery claims nothing
	// and applies nothing.
	ct, err := tx.Exec(ctx,
		`INSERT INTO stock_events (event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING`, eventID)
	if err != nil {
		return fmt.Errorf("product repository: record event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil
	}

	ct, err = tx.Exec(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND stock_quantity + $2 >= 0`,
		productID, delta,
	)
	if err != nil {
		return fmt.Errorf("product repository: adjust stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if qerr := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); qerr != nil {
			return fmt.Errorf("product repository: adjust stock: %w", qerr)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: product %s, delta %d", domain.ErrInsufficientStock, productID, delta)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("product repository: commit: %w", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.StockQuantity, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &p, nil
}
