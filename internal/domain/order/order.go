package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("order: not found")
	// ErrInvalidOperation marks business-rule rejections (empty order, missing
	// product, insufficient stock, illegal status change). Callers distinguish
	// them from system faults with errors.Is.
	ErrInvalidOperation = errors.New("order: invalid operation")
	ErrInvalidQuantity  = errors.New("order: quantity must be greater than zero")
)

// Line is a priced order line. Product name and unit price are snapshots taken
// at order time; later product changes never touch historical orders.
type Line struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID            string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Lines         []Line
	TotalAmount   decimal.Decimal
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New builds a pending order from priced lines and derives the total.
// An order is never constructed without at least one line.
func New(id, customerID, customerName, customerEmail string, lines []Line) (*Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one line", ErrInvalidOperation)
	}

	total := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, l.ProductID)
		}
		total = total.Add(l.Total())
	}

	now := time.Now().UTC()
	return &Order{
		ID:            id,
		CustomerID:    customerID,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Lines:         lines,
		TotalAmount:   total,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// TransitionTo moves the order to next if the transition table allows it.
func (o *Order) TransitionTo(next Status) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidOperation, o.Status, next)
	}
	o.Status = next
	o.touch()
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]Line(nil), o.Lines...)
	return &clone
}
