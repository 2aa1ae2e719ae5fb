package order

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound signals the inventory service answered that the
	// product does not exist.
	ErrProductNotFound = errors.New("inventory: product not found")
	// ErrInventoryUnavailable signals the inventory service could not be
	// reached or answered with a fault; the product may well exist.
	ErrInventoryUnavailable = errors.New("inventory: unavailable")
)

// ProductInfo is the authoritative product snapshot at query time.
type ProductInfo struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
}

// InventoryClient looks up the definitive product state from the stock
// service. Implementations return ErrProductNotFound or ErrInventoryUnavailable
// (possibly wrapped with a cause); they never return partial or cached data.
type InventoryClient interface {
	FetchProduct(ctx context.Context, productID string) (*ProductInfo, error)
}

type IDGenerator interface {
	NewID() string
}
