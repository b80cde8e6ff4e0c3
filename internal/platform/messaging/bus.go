package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

const subscriberBuffer = 128

// ErrSubscriberBacklog is returned by Publish when a subscriber's buffer was
// full. The outbox row stays pending and the relay retries it, so subscribers
// that did receive the event may see it again.
var ErrSubscriberBacklog = errors.New("subscriber backlog full")

// Bus is the in-process event bus behind the outbox relay. Publish never
// blocks on a slow subscriber; it delivers to every subscriber with room and
// reports ErrSubscriberBacklog for the rest.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan ports.EventEnvelope
	brokers     []string
	logger      *slog.Logger
}

var _ ports.EventPublisher = (*Bus)(nil)

func NewBus(brokers []string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]chan ports.EventEnvelope),
		brokers:     append([]string(nil), brokers...),
		logger:      logger,
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	if err := event.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	subs := append([]chan ports.EventEnvelope(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			dropped++
			b.logger.Warn("dropping event for slow subscriber",
				"event", "bus_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
			)
		}
	}
	if dropped > 0 {
		return ErrSubscriberBacklog
	}

	b.logger.Debug("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"subscribers", len(subs),
	)
	return nil
}

// Subscribe registers handler on topic until ctx is cancelled. Handler
// errors are logged and do not stop the subscription.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) {
	ch := make(chan ports.EventEnvelope, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(topic, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
}

// Brokers returns the configured broker addresses. The bus itself is
// in-process; they are reported so operators can see the intended target.
func (b *Bus) Brokers() []string {
	return append([]string(nil), b.brokers...)
}

func (b *Bus) removeSubscriber(topic string, target chan ports.EventEnvelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan ports.EventEnvelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}
