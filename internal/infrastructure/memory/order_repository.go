package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/shopmesh/shopmesh/internal/domain/order"
	domoutbox "github.com/shopmesh/shopmesh/internal/domain/outbox"
)

// OrderRepository is the in-memory order ledger. Create stores the order and
// its outbox messages under one lock, mirroring the atomic unit of work the
// relational implementation gets from a transaction.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	outbox *OutboxStore
}

func NewOrderRepository(outbox *OutboxStore) *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
		outbox: outbox,
	}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order, msgs []domoutbox.Message) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return fmt.Errorf("order repository: duplicate id %s", o.ID)
	}

	r.orders[o.ID] = o.Clone()
	if r.outbox != nil {
		r.outbox.append(msgs)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; !exists {
		return domain.ErrNotFound
	}
	r.orders[o.ID] = o.Clone()
	return nil
}
