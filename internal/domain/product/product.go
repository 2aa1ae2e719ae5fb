package product

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("product: not found")
	ErrInsufficientStock = errors.New("product: insufficient stock")
	ErrInvalidProduct    = errors.New("product: invalid product")
)

type Product struct {
	ID            string
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	// Version backs the optimistic conditional update on stock adjustments.
	Version int
}

func New(id, name, description string, price decimal.Decimal, stockQuantity int) (*Product, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if price.IsNegative() || price.IsZero() {
		return nil, fmt.Errorf("%w: price must be greater than zero", ErrInvalidProduct)
	}
	if stockQuantity < 0 {
		return nil, fmt.Errorf("%w: stock quantity must be zero or greater", ErrInvalidProduct)
	}

	now := time.Now().UTC()
	return &Product{
		ID:            id,
		Name:          name,
		Description:   description,
		Price:         price,
		StockQuantity: stockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}, nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
