package outbox

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domoutbox "github.com/shopmesh/shopmesh/internal/domain/outbox"
	"github.com/shopmesh/shopmesh/internal/infrastructure/memory"
)

type recordingPublisher struct {
	topics  []string
	keys    []string
	failOn  string
	markErr bool
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, _ []byte) error {
	if p.failOn != "" && key == p.failOn {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	return nil
}

func seedMessages(t *testing.T, store *memory.OutboxStore, keys ...string) {
	t.Helper()
	var msgs []domoutbox.Message
	for i, key := range keys {
		msgs = append(msgs, domoutbox.Message{
			ID:      fmt.Sprintf("m%d", i+1),
			Topic:   "stock-update",
			Key:     key,
			Payload: []byte(`{}`),
		})
	}
	store.Seed(msgs)
}

func TestDispatchPublishesInOrderAndMarksSent(t *testing.T) {
	store := memory.NewOutboxStore()
	seedMessages(t, store, "a", "b", "c")
	pub := &recordingPublisher{}
	d := NewDispatcher(store, pub, nil, nil)

	if got := d.Dispatch(context.Background()); got != 3 {
		t.Fatalf("Dispatch = %d, want 3", got)
	}
	if len(pub.keys) != 3 || pub.keys[0] != "a" || pub.keys[1] != "b" || pub.keys[2] != "c" {
		t.Errorf("published keys = %v, want [a b c]", pub.keys)
	}
	if pending := store.Pending(); len(pending) != 0 {
		t.Errorf("pending after dispatch = %d, want 0", len(pending))
	}
}

func TestDispatchStopsAtFirstFailure(t *testing.T) {
	store := memory.NewOutboxStore()
	seedMessages(t, store, "a", "b", "c")
	pub := &recordingPublisher{failOn: "b"}
	d := NewDispatcher(store, pub, nil, nil)

	if got := d.Dispatch(context.Background()); got != 1 {
		t.Fatalf("Dispatch = %d, want 1", got)
	}
	if len(pub.keys) != 1 || pub.keys[0] != "a" {
		t.Errorf("published keys = %v, want [a]", pub.keys)
	}

	// b and c stay pending so ordering is preserved across retries.
	pending := store.Pending()
	if len(pending) != 2 || pending[0].Key != "b" || pending[1].Key != "c" {
		t.Fatalf("pending = %+v, want b then c", pending)
	}

	pub.failOn = ""
	if got := d.Dispatch(context.Background()); got != 2 {
		t.Fatalf("retry Dispatch = %d, want 2", got)
	}
	if pending := store.Pending(); len(pending) != 0 {
		t.Errorf("pending after retry = %d, want 0", len(pending))
	}
}

func TestDispatchEmptyStore(t *testing.T) {
	store := memory.NewOutboxStore()
	d := NewDispatcher(store, &recordingPublisher{}, nil, nil)

	if got := d.Dispatch(context.Background()); got != 0 {
		t.Errorf("Dispatch = %d, want 0", got)
	}
}
