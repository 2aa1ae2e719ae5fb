package postgres

import (
	"context"
	"fmt"

	domain "github.com/shopmesh/shopmesh/internal/domain/outbox"

	"github.com/jackc/pgx/v5/pgxpool"
)

type OutboxStore struct {
	pool *pgxpool.Pool
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool}
}

func (s *OutboxStore) FetchPending(ctx context.Context, limit int) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, topic, key, payload, created_at, sent_at
		 FROM outbox WHERE sent_at IS NULL ORDER BY seq LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox store: fetch pending: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Topic, &m.Key, &m.Payload, &m.CreatedAt, &m.SentAt); err != nil {
			return nil, fmt.Errorf("outbox store: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("outbox store: mark sent: %w", err)
	}
	return nil
}
