package commands

import (
	"context"
	"encoding/json"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

const (
	contractPublishedEventType = "escrow.contract.published"
	orderCreatedEventType      = "escrow.order.created"
	orderConfirmedEventType    = "escrow.order.confirmed"
	orderDisputedEventType     = "escrow.order.disputed"
	orderSlashedEventType      = "escrow.order.slashed"
	commissionClaimedEventType = "escrow.commission.claimed"
	yieldHarvestedEventType    = "escrow.yield.harvested"
	vaultYieldRecordedType     = "escrow.vault.yield_recorded"

	sourceService = "commission-escrow-service"
)

// appendEvent writes an envelope to the outbox inside tx. Every escrow event
// is partitioned by contract so consumers see one contract's history in order.
func appendEvent(
	ctx context.Context,
	tx ports.Transaction,
	ids ports.IDGenerator,
	eventType string,
	contractID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	return appendEnvelope(ctx, tx, ids, eventType, "contract_id", contractID, occurredAt, data)
}

func appendEnvelope(
	ctx context.Context,
	tx ports.Transaction,
	ids ports.IDGenerator,
	eventType string,
	keyPath string,
	key string,
	occurredAt time.Time,
	data map[string]any,
) error {
	eventID, err := ids.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		SchemaVersion:    1,
		PartitionKeyPath: keyPath,
		PartitionKey:     key,
		Data:             payload,
	})
}
