package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopmesh/shopmesh/internal/contracts"
	domain "github.com/shopmesh/shopmesh/internal/domain/product"
	"github.com/shopmesh/shopmesh/internal/pkg/logging"
	"github.com/shopmesh/shopmesh/internal/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const componentReconciler = "stock_reconciler"

// Reconciler consumes stock-update events and applies bounded quantity
// adjustments to product records. Delivery is at-least-once; the repository's
// idempotency token makes redelivered events no-ops, and an adjustment that
// would drive stock negative is rejected without mutating the row.
type Reconciler struct {
	repo domain.Repository
	log  *zap.Logger
	met  *metrics.StockMetrics
}

func NewReconciler(repo domain.Repository, logger *zap.Logger, met *metrics.StockMetrics) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		repo: repo,
		log:  logger.With(zap.String("component", componentReconciler)),
		met:  met,
	}
}

// HandleStockUpdate is the stock-update topic handler. A returned error means
// the message is dropped by the bus, not redelivered.
func (r *Reconciler) HandleStockUpdate(ctx context.Context, payload []byte) (err error) {
	var ev contracts.StockUpdateEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		r.log.Warn("stock_update_malformed", zap.Error(err))
		return fmt.Errorf("stock: decode stock-update event: %w", err)
	}

	logger := logging.FromContext(ctx).With(
		zap.String("component", componentReconciler),
		zap.String("product_id", ev.ProductID),
		zap.String("order_id", ev.OrderID),
		zap.String("operation", ev.Operation),
		zap.Int("quantity", ev.Quantity),
	)

	ctx, span := otel.Tracer("shopmesh/stock").Start(ctx, "ApplyStockDelta")
	span.SetAttributes(
		attribute.String("product.id", ev.ProductID),
		attribute.String("order.id", ev.OrderID),
		attribute.String("stock.operation", ev.Operation),
		attribute.Int("stock.quantity", ev.Quantity),
	)
	outcome := "applied"
	defer func() {
		if err != nil {
			outcome = "error"
			if errors.Is(err, domain.ErrInsufficientStock) {
				outcome = "rejected"
			} else if errors.Is(err, domain.ErrNotFound) {
				outcome = "unknown_product"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		if r.met != nil {
			r.met.StockAdjustments.WithLabelValues(ev.Operation, outcome).Inc()
		}
	}()

	var delta int
	switch ev.Operation {
	case contracts.OpDecrease:
		delta = -ev.Quantity
	case contracts.OpIncrease:
		delta = ev.Quantity
	default:
		return fmt.Errorf("stock: unknown operation %q", ev.Operation)
	}
	if ev.Quantity <= 0 {
		return fmt.Errorf("stock: quantity must be greater than zero, got %d", ev.Quantity)
	}

	// Events from older producers may lack the per-event token; fall back to
	// the order+product pair, which is unique per placement.
	token := ev.EventID
	if token == "" {
		token = ev.OrderID + ":" + ev.ProductID
	}

	if err := r.repo.ApplyDelta(ctx, token, ev.ProductID, delta); err != nil {
		logger.Warn("stock_adjustment_failed", zap.Error(err))
		return err
	}

	logger.Info("stock_adjusted")
	return nil
}
