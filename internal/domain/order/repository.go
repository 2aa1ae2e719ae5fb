package order

import (
	"context"

	"github.com/shopmesh/shopmesh/internal/domain/outbox"
)

type Repository interface {
	// Create persists the order with its lines and the given outbox messages
	// as one atomic write. Either everything is stored or nothing is.
	Create(ctx context.Context, o *Order, msgs []outbox.Message) error
	Get(ctx context.Context, id string) (*Order, error)
	// ListByCustomer returns the customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]*Order, error)
	Update(ctx context.Context, o *Order) error
}
