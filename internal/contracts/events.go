// Package contracts defines the wire events shared by the sales and stock
// services. Field names are part of the contract; both producer and consumer
// depend on them staying stable.
package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicStockUpdate  = "stock-update"
	TopicOrderCreated = "order-created"
)

const (
	OpDecrease = "decrease"
	OpIncrease = "increase"
)

// StockUpdateEvent asks the stock service to adjust a product's quantity by a
// signed amount, encoded as magnitude plus operation. EventID is the
// idempotency token the consumer dedupes on.
type StockUpdateEvent struct {
	EventID   string    `json:"event_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Operation string    `json:"operation"`
	OrderID   string    `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderItemEvent struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderCreatedEvent summarizes a placed order for downstream consumers.
type OrderCreatedEvent struct {
	EventID     string           `json:"event_id"`
	OrderID     string           `json:"order_id"`
	CustomerID  string           `json:"customer_id"`
	Items       []OrderItemEvent `json:"items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Timestamp   time.Time        `json:"timestamp"`
}
