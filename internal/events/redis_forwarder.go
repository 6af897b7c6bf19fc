package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher sends an encoded event to an external channel.
// *persistence.Redis satisfies it.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// RedisForwarder relays domain events as JSON messages.
type RedisForwarder struct {
	publisher Publisher
	timeout   time.Duration
}

// NewRedisForwarder creates a forwarder bounded by timeout per publish.
func NewRedisForwarder(publisher Publisher, timeout time.Duration) *RedisForwarder {
	return &RedisForwarder{publisher: publisher, timeout: timeout}
}

// Handle encodes the event and publishes it.
func (f *RedisForwarder) Handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	if err := f.publisher.Publish(ctx, payload); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
