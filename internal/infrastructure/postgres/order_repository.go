// Package postgres implements the repositories on pgx. Each write operation
// opens its own transaction; the order write and its outbox rows commit
// together or not at all.
package postgres

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/shopmesh/shopmesh/internal/domain/order"
	domoutbox "github.com/shopmesh/shopmesh/internal/domain/outbox"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order, msgs []domoutbox.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("order repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (id, customer_id, customer_name, customer_email, total_amount, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.CustomerID, o.CustomerName, o.CustomerEmail,
		o.TotalAmount.StringFixed(2), string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("order repository: insert order: %w", err)
	}

	for i, line := range o.Lines {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_lines (order_id, position, product_id, product_name, unit_price, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, i, line.ProductID, line.ProductName, line.UnitPrice.StringFixed(2), line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("order repository: insert line %d: %w", i, err)
		}
	}

	for _, msg := range msgs {
		_, err = tx.Exec(ctx,
			`INSERT INTO outbox (id, topic, key, payload, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			msg.ID, msg.Topic, msg.Key, msg.Payload, msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("order repository: insert outbox message: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("order repository: commit: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, customer_id, customer_name, customer_email, total_amount::text, status, created_at, updated_at
		 FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("order repository: get: %w", err)
	}

	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_id, customer_name, customer_email, total_amount::text, status, created_at, updated_at
		 FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("order repository: list: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("order repository: list scan: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order repository: list rows: %w", err)
	}

	for _, o := range out {
		if err := r.loadLines(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		o.ID, string(o.Status), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("order repository: update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) loadLines(ctx context.Context, o *domain.Order) error {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, product_name, unit_price::text, quantity
		 FROM order_lines WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("order repository: load lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line  domain.Line
			price string
		)
		if err := rows.Scan(&line.ProductID, &line.ProductName, &price, &line.Quantity); err != nil {
			return fmt.Errorf("order repository: scan line: %w", err)
		}
		line.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("order repository: parse unit price: %w", err)
		}
		o.Lines = append(o.Lines, line)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		total  string
		status string
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &o.CustomerEmail, &total, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	o.Status = domain.Status(status)
	return &o, nil
}
