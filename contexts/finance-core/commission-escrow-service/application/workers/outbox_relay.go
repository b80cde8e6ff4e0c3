package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/application/commands"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

const DefaultOutboxTopic = "escrow.events"

type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes pending envelopes in creation order and stops at the
// first failure so later events never overtake an unsent one.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	if r.Clock == nil {
		return commands.ErrClockRequired
	}
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = DefaultOutboxTopic
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list pending failed",
			"event", "escrow_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := r.Clock.Now().UTC()
	for _, message := range pending {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			logger.Error("outbox payload decode failed",
				"event", "escrow_outbox_decode_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}

		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("outbox publish failed",
				"event", "escrow_outbox_publish_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"event_type", envelope.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxSent(ctx, message.OutboxID, now); err != nil {
			logger.Error("outbox mark sent failed",
				"event", "escrow_outbox_mark_sent_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	if len(pending) > 0 {
		logger.Info("outbox relay cycle completed",
			"event", "escrow_outbox_relay_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"sent_count", len(pending),
		)
	}
	return nil
}
