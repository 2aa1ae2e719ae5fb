package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/shopmesh/shopmesh/internal/domain/product"
)

// ProductRepository keeps the catalog in memory. ApplyDelta performs the
// conditional adjustment and the idempotency-token record under one lock,
// matching the single-transaction guarantee of the relational implementation.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	applied  map[string]struct{}
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
		applied:  make(map[string]struct{}),
	}
}

func (r *ProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return fmt.Errorf("product repository: duplicate id %s", p.ID)
	}
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; !exists {
		return domain.ErrNotFound
	}
	clone := p.Clone()
	clone.UpdatedAt = time.Now().UTC()
	clone.Version++
	r.products[p.ID] = clone
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[id]; !exists {
		return domain.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *ProductRepository) ApplyDelta(ctx context.Context, eventID, productID string, delta int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.applied[eventID]; seen {
		return nil
	}

	p, ok := r.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.StockQuantity+delta < 0 {
		return fmt.Errorf("%w: product %s has %d, delta %d", domain.ErrInsufficientStock, productID, p.StockQuantity, delta)
	}

	p.StockQuantity += delta
	p.UpdatedAt = time.Now().UTC()
	p.Version++
	r.applied[eventID] = struct{}{}
	return nil
}
