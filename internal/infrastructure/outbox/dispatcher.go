package outbox

import (
	"context"
	"time"

	domoutbox "github.com/shopmesh/shopmesh/internal/domain/outbox"
	"github.com/shopmesh/shopmesh/internal/pkg/metrics"

	"go.uber.org/zap"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Dispatcher drains pending outbox messages to the broker. Publish failures
// leave the message pending, so delivery is retried on the next tick; marking
// sent only after a successful publish keeps at-least-once semantics.
type Dispatcher struct {
	store     domoutbox.Store
	publisher domoutbox.Publisher
	interval  time.Duration
	batchSize int
	log       *zap.Logger
	met       *metrics.SalesMetrics
}

func NewDispatcher(store domoutbox.Store, publisher domoutbox.Publisher, logger *zap.Logger, met *metrics.SalesMetrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		log:       logger.With(zap.String("component", "outbox_dispatcher")),
		met:       met,
	}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info("outbox_dispatcher_started", zap.Duration("interval", d.interval))
	for {
		select {
		case <-ctx.Done():
			d.log.Info("outbox_dispatcher_stopped")
			return
		case <-ticker.C:
			d.Dispatch(ctx)
		}
	}
}

// Dispatch publishes one batch of pending messages in insertion order and
// reports how many were delivered. It stops at the first publish failure to
// preserve per-key ordering across retries.
func (d *Dispatcher) Dispatch(ctx context.Context) int {
	msgs, err := d.store.FetchPending(ctx, d.batchSize)
	if err != nil {
		d.log.Error("outbox_fetch_failed", zap.Error(err))
		return 0
	}

	published := 0
	for _, msg := range msgs {
		if err := d.publisher.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			d.log.Warn("outbox_publish_failed",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Error(err),
			)
			if d.met != nil {
				d.met.OutboxDispatched.WithLabelValues(msg.Topic, "error").Inc()
			}
			return published
		}
		if err := d.store.MarkSent(ctx, msg.ID); err != nil {
			// The message will be re-published next tick; consumers dedupe.
			d.log.Error("outbox_mark_sent_failed",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			return published
		}
		if d.met != nil {
			d.met.OutboxDispatched.WithLabelValues(msg.Topic, "success").Inc()
		}
		published++
	}
	return published
}
