package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
	contractsv1 "commissionvault/contracts/gen/events/v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(id string) ports.EventEnvelope {
	return ports.EventEnvelope{
		EventID:          id,
		EventType:        "escrow.order.created",
		OccurredAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		SourceService:    "commission-escrow-service",
		SchemaVersion:    1,
		PartitionKeyPath: "contract_id",
		PartitionKey:     "contract_1",
		Data:             json.RawMessage(`{"order_id":"order_1"}`),
	}
}

func TestBusDeliversToSubscribersOfTopic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus([]string{"localhost:9092"}, nil)
	received := make(chan ports.EventEnvelope, 1)
	bus.Subscribe(ctx, "escrow.events", "audit", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})

	require.NoError(t, bus.Publish(ctx, "other.topic", envelope("evt_0")))
	require.NoError(t, bus.Publish(ctx, "escrow.events", envelope("evt_1")))

	select {
	case event := <-received:
		assert.Equal(t, "evt_1", event.EventID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Equal(t, []string{"localhost:9092"}, bus.Brokers())
}

func TestBusReportsFullSubscriberBuffer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(nil, nil)
	release := make(chan struct{})
	defer close(release)
	bus.Subscribe(ctx, "escrow.events", "audit", func(ctx context.Context, _ ports.EventEnvelope) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	var err error
	for i := 0; i <= subscriberBuffer+1 && err == nil; i++ {
		err = bus.Publish(ctx, "escrow.events", envelope("evt_fill"))
	}
	require.ErrorIs(t, err, ErrSubscriberBacklog)
}

func TestBusRejectsInvalidEnvelope(t *testing.T) {
	bus := NewBus(nil, nil)
	err := bus.Publish(context.Background(), "escrow.events", ports.EventEnvelope{EventID: "evt_1"})
	require.ErrorIs(t, err, contractsv1.ErrInvalidEnvelope)
}

func TestBusKeepsSubscriptionAfterHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(nil, nil)
	calls := make(chan string, 2)
	bus.Subscribe(ctx, "escrow.events", "audit", func(_ context.Context, event ports.EventEnvelope) error {
		calls <- event.EventID
		return errors.New("handler failed")
	})

	require.NoError(t, bus.Publish(ctx, "escrow.events", envelope("evt_1")))
	require.NoError(t, bus.Publish(ctx, "escrow.events", envelope("evt_2")))

	for _, want := range []string{"evt_1", "evt_2"} {
		select {
		case got := <-calls:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("event %s not delivered", want)
		}
	}
}

func TestBusRemovesSubscriberOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewBus(nil, nil)
	bus.Subscribe(ctx, "escrow.events", "audit", func(context.Context, ports.EventEnvelope) error { return nil })
	cancel()

	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["escrow.events"]) == 0
	}, time.Second, 10*time.Millisecond)
}
