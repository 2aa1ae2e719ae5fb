// Package bus adapts Kafka to the publish/subscribe ports. Topics are durable
// named queues; consumers are at-least-once with explicit commits.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Bus lazily creates one writer per topic and one supervised reader per
// subscription. With no brokers configured it degrades to a no-op that logs a
// warning per publish instead of failing the caller.
type Bus struct {
	brokers []string
	log     *zap.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func New(brokers []string, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		brokers: brokers,
		log:     logger.With(zap.String("component", "bus")),
		writers: make(map[string]*kafka.Writer),
	}
}

func (b *Bus) Enabled() bool { return len(b.brokers) > 0 }

// Publish writes one message to the topic. The returned error lets the outbox
// dispatcher keep the message pending and retry later; it is never surfaced to
// a business transaction.
func (b *Bus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if !b.Enabled() {
		b.log.Warn("broker_not_configured_message_dropped", zap.String("topic", topic))
		return nil
	}

	err := b.writer(topic).WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		b.log.Warn("publish_failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}

func (b *Bus) writer(topic string) *kafka.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.writers[topic]
	if !ok {
		w = &kafka.Writer{
			Addr:                   kafka.TCP(b.brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		}
		b.writers[topic] = w
	}
	return w
}

// Handler processes one message payload. A returned error drops the message;
// it is not redelivered, so handlers must fail only on non-retryable input.
type Handler func(ctx context.Context, payload []byte) error

// Subscribe starts a long-lived consumer for the topic under the given group.
// The loop is supervised: on broker loss the reader is rebuilt with capped
// exponential backoff rather than going silently idle. It returns once ctx is
// cancelled.
func (b *Bus) Subscribe(ctx context.Context, topic, group string, handler Handler) {
	if !b.Enabled() {
		b.log.Warn("broker_not_configured_subscription_skipped", zap.String("topic", topic))
		return
	}
	go b.superviseLoop(ctx, topic, group, handler)
}

func (b *Bus) superviseLoop(ctx context.Context, topic, group string, handler Handler) {
	logger := b.log.With(zap.String("topic", topic), zap.String("group", group))
	backoff := initialBackoff

	for ctx.Err() == nil {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers: b.brokers,
			Topic:   topic,
			GroupID: group,
		})

		processed, err := b.consume(ctx, reader, handler, logger)
		_ = reader.Close()

		if ctx.Err() != nil {
			logger.Info("consumer_stopped")
			return
		}
		if processed > 0 {
			backoff = initialBackoff
		}

		logger.Warn("consumer_restarting", zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			logger.Info("consumer_stopped")
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// consume fetches, handles, and commits until the reader fails or ctx ends.
// A handler error does not stop the loop: the message is acknowledged without
// requeue and dropped, trading guaranteed delivery for no poison-message loop.
func (b *Bus) consume(ctx context.Context, reader *kafka.Reader, handler Handler, logger *zap.Logger) (int, error) {
	processed := 0
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			return processed, err
		}

		if herr := handler(ctx, msg.Value); herr != nil {
			logger.Warn("message_dropped",
				zap.Int64("offset", msg.Offset),
				zap.Error(herr),
			)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			return processed, err
		}
		processed++
	}
}

// Close flushes and closes all writers.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for topic, w := range b.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.writers, topic)
	}
	return firstErr
}
