package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storeNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedContract(t *testing.T, store *Store) entities.Contract {
	t.Helper()
	contract, err := entities.NewContract("contract_1", entities.ContractTerms{
		MerchantID:    "merchant_1",
		SKU:           "sku_1",
		CommissionBPS: 500,
		VaultID:       "vault_1",
	}, 2000, storeNow)
	require.NoError(t, err)
	require.NoError(t, store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.Transaction) error {
		return tx.CreateContract(ctx, contract)
	}))
	return contract
}

func TestWithinTransactionDiscardsWritesOnError(t *testing.T) {
	store := NewStore()
	contract := seedContract(t, store)
	boom := errors.New("boom")

	err := store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.Transaction) error {
		current, err := tx.GetContract(ctx, contract.ContractID)
		if err != nil {
			return err
		}
		if err := current.Withdraw(500, storeNow); err != nil {
			return err
		}
		if _, err := tx.UpdateContract(ctx, current); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := store.GetContract(context.Background(), contract.ContractID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), stored.StakedShares)
	assert.Equal(t, int64(1), stored.Version)
}

func TestUpdateContractRejectsStaleVersion(t *testing.T) {
	store := NewStore()
	contract := seedContract(t, store)

	err := store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.Transaction) error {
		updated, err := tx.UpdateContract(ctx, contract)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(2), updated.Version)
		_, err = tx.UpdateContract(ctx, contract)
		return err
	})
	require.ErrorIs(t, err, domainerrors.ErrConcurrentUpdate)
}

func TestTicketIssuedOncePerOrder(t *testing.T) {
	store := NewStore()
	ticket := entities.Ticket{TicketID: "ticket_1", OrderID: "order_1", DistributorID: "dist_1", Amount: 50, CreatedAt: storeNow}

	require.NoError(t, store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.Transaction) error {
		return tx.CreateTicket(ctx, ticket)
	}))

	dup := ticket
	dup.TicketID = "ticket_2"
	err := store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.Transaction) error {
		return tx.CreateTicket(ctx, dup)
	})
	require.ErrorIs(t, err, domainerrors.ErrTicketAlreadyIssued)

	err = store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.Transaction) error {
		if err := tx.MarkTicketClaimed(ctx, ticket.TicketID, storeNow); err != nil {
			return err
		}
		return tx.MarkTicketClaimed(ctx, ticket.TicketID, storeNow)
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyClaimed)

	stored, err := store.GetTicket(context.Background(), ticket.TicketID)
	require.NoError(t, err)
	assert.False(t, stored.Claimed)
}

func TestListSlashableOrdersFiltersByStatusAndDeadline(t *testing.T) {
	store := NewStore()
	orders := []entities.Order{
		{OrderID: "late_pending", Status: entities.OrderStatusPending, Deadline: storeNow.Add(-2 * time.Hour)},
		{OrderID: "late_disputed", Status: entities.OrderStatusDisputed, Deadline: storeNow.Add(-time.Hour)},
		{OrderID: "late_confirmed", Status: entities.OrderStatusConfirmed, Deadline: storeNow.Add(-time.Hour)},
		{OrderID: "early_pending", Status: entities.OrderStatusPending, Deadline: storeNow.Add(time.Hour)},
		{OrderID: "at_deadline", Status: entities.OrderStatusPending, Deadline: storeNow},
	}
	require.NoError(t, store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.Transaction) error {
		for _, order := range orders {
			if err := tx.CreateOrder(ctx, order); err != nil {
				return err
			}
		}
		return nil
	}))

	due, err := store.ListSlashableOrders(context.Background(), storeNow, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "late_pending", due[0].OrderID)
	assert.Equal(t, "late_disputed", due[1].OrderID)
}

func TestOutboxKeepsAppendOrderUntilSent(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.Transaction) error {
		for _, id := range []string{"evt_1", "evt_2"} {
			if err := tx.AppendOutbox(ctx, ports.EventEnvelope{
				EventID:       id,
				EventType:     "escrow.order.created",
				OccurredAt:    storeNow,
				SchemaVersion: 1,
				PartitionKey:  "contract_1",
				Data:          []byte(`{}`),
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "evt_1", pending[0].OutboxID)

	require.NoError(t, store.MarkOutboxSent(context.Background(), "evt_1", storeNow))
	pending, err = store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "evt_2", pending[0].OutboxID)
	assert.Len(t, store.OutboxEnvelopes(), 2)
}

func TestAppendOutboxRejectsInvalidEnvelope(t *testing.T) {
	store := NewStore()
	err := store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.Transaction) error {
		return tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt_1"})
	})
	require.Error(t, err)
	assert.Empty(t, store.OutboxEnvelopes())
}
