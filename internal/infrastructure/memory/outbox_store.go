package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/shopmesh/shopmesh/internal/domain/outbox"
)

// OutboxStore keeps outbox messages in insertion order.
type OutboxStore struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

// append is called by repositories inside their own critical section so the
// business write and its messages land together.
func (s *OutboxStore) append(msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msgs...)
}

// Seed inserts messages directly, bypassing any repository write. Intended for
// tests and local tooling.
func (s *OutboxStore) Seed(msgs []domain.Message) {
	for i := range msgs {
		if msgs[i].CreatedAt.IsZero() {
			msgs[i].CreatedAt = time.Now().UTC()
		}
	}
	s.append(msgs)
}

func (s *OutboxStore) FetchPending(ctx context.Context, limit int) ([]domain.Message, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Message, 0, limit)
	for _, m := range s.msgs {
		if m.SentAt != nil {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.msgs {
		if s.msgs[i].ID == id {
			now := time.Now().UTC()
			s.msgs[i].SentAt = &now
			return nil
		}
	}
	return nil
}

// Pending reports unsent messages; used by tests and health reporting.
func (s *OutboxStore) Pending() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Message
	for _, m := range s.msgs {
		if m.SentAt == nil {
			out = append(out, m)
		}
	}
	return out
}
