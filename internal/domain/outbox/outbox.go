package outbox

import (
	"context"
	"time"
)

// Message is a broker-bound event persisted in the same local transaction as
// the business write that produced it. A background dispatcher publishes
// pending messages and marks them sent, so a committed order can never lose
// its events to a broker outage; they are retried until delivery succeeds.
type Message struct {
	ID        string
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
	SentAt    *time.Time
}

// Store provides the dispatcher's view of the outbox table.
type Store interface {
	// FetchPending returns up to limit unsent messages, oldest first.
	FetchPending(ctx context.Context, limit int) ([]Message, error)
	MarkSent(ctx context.Context, id string) error
}

// Publisher is the broker port the dispatcher publishes through.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}
