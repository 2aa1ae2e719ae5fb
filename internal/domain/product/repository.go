package product

import "context"

type Repository interface {
	List(ctx context.Context) ([]*Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error

	// ApplyDelta adjusts the product's stock quantity by delta as one atomic
	// conditional read-modify-write. The adjustment is rejected with
	// ErrInsufficientStock when the result would go negative, and the product
	// row is left untouched. eventID is an idempotency token: a delta that was
	// already applied under the same token is a no-op, so redelivered events
	// never double-apply.
	ApplyDelta(ctx context.Context, eventID, productID string, delta int) error
}
