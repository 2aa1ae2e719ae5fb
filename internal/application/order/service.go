package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopmesh/shopmesh/internal/contracts"
	domain "github.com/shopmesh/shopmesh/internal/domain/order"
	domoutbox "github.com/shopmesh/shopmesh/internal/domain/outbox"
	"github.com/shopmesh/shopmesh/internal/pkg/logging"
	"github.com/shopmesh/shopmesh/internal/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const componentOrderService = "order_service"

// Service owns the order ledger: it runs the placement workflow and the
// status/read operations. All writes go through the repository's atomic unit
// of work; events reach the broker only via the outbox.
type Service struct {
	repo      domain.Repository
	inventory InventoryClient
	ids       IDGenerator
	log       *zap.Logger
	met       *metrics.SalesMetrics
}

func NewService(repo domain.Repository, inventory InventoryClient, ids IDGenerator, logger *zap.Logger, met *metrics.SalesMetrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		inventory: inventory,
		ids:       ids,
		log:       logger.With(zap.String("component", componentOrderService)),
		met:       met,
	}
}

type PlaceOrderLine struct {
	ProductID string
	Quantity  int
}

type PlaceOrderInput struct {
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Lines         []PlaceOrderLine
}

// PlaceOrder validates and prices each line against the live inventory
// snapshot, persists the order together with its outbox events in one atomic
// write, then moves it to processing. A business-rule rejection wraps
// domain.ErrInvalidOperation and leaves nothing behind.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (_ *domain.Order, err error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", componentOrderService),
		zap.String("customer_id", input.CustomerID),
	)

	ctx, span := otel.Tracer("shopmesh/sales").Start(ctx, "PlaceOrder")
	span.SetAttributes(
		attribute.String("order.customer_id", input.CustomerID),
		attribute.Int("order.lines", len(input.Lines)),
	)
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
			if errors.Is(err, domain.ErrInvalidOperation) {
				outcome = "rejected"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		if s.met != nil {
			s.met.OrdersPlaced.WithLabelValues(outcome).Inc()
			s.met.PlaceOrderDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		}
	}()

	if input.CustomerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidOperation)
	}
	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one line", domain.ErrInvalidOperation)
	}

	// Validate and price lines strictly in caller order. Duplicate product
	// references are each checked against the same pre-fetched availability
	// snapshot; there is no re-check between lines.
	snapshots := make(map[string]*ProductInfo, len(input.Lines))
	lines := make([]domain.Line, 0, len(input.Lines))
	for _, in := range input.Lines {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s: quantity must be greater than zero", domain.ErrInvalidOperation, in.ProductID)
		}

		info, ok := snapshots[in.ProductID]
		if !ok {
			var ferr error
			info, ferr = s.inventory.FetchProduct(ctx, in.ProductID)
			switch {
			case ferr == nil:
				snapshots[in.ProductID] = info
			case errors.Is(ferr, ErrProductNotFound):
				return nil, fmt.Errorf("%w: product %s not found", domain.ErrInvalidOperation, in.ProductID)
			case errors.Is(ferr, ErrInventoryUnavailable):
				return nil, fmt.Errorf("%w: product %s could not be verified: %v", domain.ErrInvalidOperation, in.ProductID, ferr)
			default:
				return nil, fmt.Errorf("order: inventory lookup for product %s: %w", in.ProductID, ferr)
			}
		}

		if info.StockQuantity < in.Quantity {
			return nil, fmt.Errorf("%w: product %s has insufficient stock: available %d, requested %d",
				domain.ErrInvalidOperation, in.ProductID, info.StockQuantity, in.Quantity)
		}

		lines = append(lines, domain.Line{
			ProductID:   in.ProductID,
			ProductName: info.Name,
			UnitPrice:   info.Price,
			Quantity:    in.Quantity,
		})
	}

	entity, err := domain.New(s.ids.NewID(), input.CustomerID, input.CustomerName, input.CustomerEmail, lines)
	if err != nil {
		return nil, err
	}

	msgs, err := s.buildOutboxMessages(entity)
	if err != nil {
		return nil, fmt.Errorf("order: encode events: %w", err)
	}

	if err := s.repo.Create(ctx, entity, msgs); err != nil {
		logger.Error("order_create_failed", zap.String("order_id", entity.ID), zap.Error(err))
		return nil, fmt.Errorf("order: create: %w", err)
	}

	span.SetAttributes(attribute.String("order.id", entity.ID))

	// The order and its events are committed; the dispatcher will deliver the
	// stock decrement. Mark the order accepted.
	if err := entity.TransitionTo(domain.StatusProcessing); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entity); err != nil {
		logger.Error("order_status_update_failed", zap.String("order_id", entity.ID), zap.Error(err))
		return nil, fmt.Errorf("order: mark processing: %w", err)
	}

	logger.Info("order_placed",
		zap.String("order_id", entity.ID),
		zap.String("total_amount", entity.TotalAmount.String()),
		zap.Int("lines", len(entity.Lines)),
	)
	return entity, nil
}

func (s *Service) buildOutboxMessages(o *domain.Order) ([]domoutbox.Message, error) {
	now := time.Now().UTC()
	msgs := make([]domoutbox.Message, 0, len(o.Lines)+1)

	for _, line := range o.Lines {
		ev := contracts.StockUpdateEvent{
			EventID:   s.ids.NewID(),
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Operation: contracts.OpDecrease,
			OrderID:   o.ID,
			Timestamp: now,
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, domoutbox.Message{
			ID:        ev.EventID,
			Topic:     contracts.TopicStockUpdate,
			Key:       line.ProductID,
			Payload:   payload,
			CreatedAt: now,
		})
	}

	items := make([]contracts.OrderItemEvent, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, contracts.OrderItemEvent{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	created := contracts.OrderCreatedEvent{
		EventID:     s.ids.NewID(),
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		Items:       items,
		TotalAmount: o.TotalAmount,
		Timestamp:   now,
	}
	payload, err := json.Marshal(created)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, domoutbox.Message{
		ID:        created.EventID,
		Topic:     contracts.TopicOrderCreated,
		Key:       o.ID,
		Payload:   payload,
		CreatedAt: now,
	})

	return msgs, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrInvalidOperation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListOrdersForCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidOperation)
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

// UpdateStatus applies an explicit status change, enforcing the transition
// table. Fulfillment systems drive shipped/delivered/cancelled from here.
func (s *Service) UpdateStatus(ctx context.Context, id string, next domain.Status) (*domain.Order, error) {
	entity, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entity.TransitionTo(next); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("order: update status: %w", err)
	}

	logging.FromContext(ctx).Info("order_status_updated",
		zap.String("component", componentOrderService),
		zap.String("order_id", id),
		zap.String("status", string(next)),
	)
	return entity, nil
}
