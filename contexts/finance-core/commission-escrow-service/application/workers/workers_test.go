package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/adapters/memory"
	"commissionvault/contexts/finance-core/commission-escrow-service/application/commands"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	events []ports.EventEnvelope
	failOn string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.EventType == p.failOn {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type harness struct {
	store *memory.Store
	vault *memory.Vault
	clock *clockwork.FakeClock

	publish commands.PublishAndStakeUseCase
	create  commands.CreateOrderUseCase
	confirm commands.ConfirmOrderUseCase
	slash   commands.SlashOrderUseCase
	harvest commands.HarvestInterestUseCase
}

func newHarness() *harness {
	h := &harness{
		store: memory.NewStore(),
		vault: memory.NewVault(),
		clock: clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.publish = commands.PublishAndStakeUseCase{Repository: h.store, Vault: h.vault, Clock: h.clock, IDGenerator: h.store}
	h.create = commands.CreateOrderUseCase{Repository: h.store, Clock: h.clock, IDGenerator: h.store}
	h.confirm = commands.ConfirmOrderUseCase{Repository: h.store, Clock: h.clock, IDGenerator: h.store}
	h.slash = commands.SlashOrderUseCase{Repository: h.store, Vault: h.vault, Clock: h.clock, IDGenerator: h.store}
	h.harvest = commands.HarvestInterestUseCase{
		Repository:         h.store,
		Vault:              h.vault,
		Clock:              h.clock,
		IDGenerator:        h.store,
		PlatformTreasuryID: "treasury",
	}
	return h
}

func (h *harness) contract(t *testing.T, vaultID string) entities.Contract {
	t.Helper()
	result, err := h.publish.Execute(context.Background(), commands.PublishAndStakeCommand{
		MerchantID:       "merchant_1",
		SKU:              "sku_1",
		CommissionBPS:    500,
		PlatformShareBPS: 2500,
		VaultID:          vaultID,
		Deposit:          1000,
	})
	require.NoError(t, err)
	return result.Contract
}

func (h *harness) order(t *testing.T, contractID string) entities.Order {
	t.Helper()
	order, err := h.create.Execute(context.Background(), commands.CreateOrderCommand{
		ContractID:    contractID,
		DistributorID: "dist_1",
		Amount:        200,
	})
	require.NoError(t, err)
	return order
}

func TestSlashSweeperSlashesOnlyExpiredUnresolvedOrders(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	contract := h.contract(t, "vault_1")

	expired := h.order(t, contract.ContractID)
	confirmed := h.order(t, contract.ContractID)
	_, err := h.confirm.Execute(ctx, commands.ConfirmOrderCommand{OrderID: confirmed.OrderID, CallerID: "merchant_1"})
	require.NoError(t, err)

	h.clock.Advance(48 * time.Hour)
	fresh := h.order(t, contract.ContractID)
	h.clock.Advance(25 * time.Hour)

	sweeper := SlashSweeper{Repository: h.store, Slash: h.slash, Clock: h.clock}
	require.NoError(t, sweeper.RunOnce(ctx))

	got, err := h.store.GetOrder(ctx, expired.OrderID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusSlashed, got.Status)

	got, err = h.store.GetOrder(ctx, confirmed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusConfirmed, got.Status)

	got, err = h.store.GetOrder(ctx, fresh.OrderID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusPending, got.Status)

	// a second pass finds nothing left to do
	require.NoError(t, sweeper.RunOnce(ctx))
}

func TestHarvestSchedulerHarvestsContractsWithYield(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	withYield := h.contract(t, "vault_yield")
	idle := h.contract(t, "vault_idle")
	_, err := h.vault.Accrue(ctx, "vault_yield", 40)
	require.NoError(t, err)

	scheduler := HarvestScheduler{Repository: h.store, Harvest: h.harvest}
	require.NoError(t, scheduler.RunOnce(ctx))

	got, err := h.store.GetContract(ctx, withYield.ContractID)
	require.NoError(t, err)
	assert.Equal(t, uint64(960), got.StakedShares)

	got, err = h.store.GetContract(ctx, idle.ContractID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got.StakedShares)
	assert.Equal(t, idle.Version, got.Version)

	payouts, err := h.store.ListPayoutsByRecipient(ctx, "treasury")
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, uint64(10), payouts[0].Shares)
}

func TestHarvestSchedulerReachesContractsBeyondOneBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	var contracts []entities.Contract
	for _, vaultID := range []string{"vault_a", "vault_b", "vault_c"} {
		contracts = append(contracts, h.contract(t, vaultID))
		_, err := h.vault.Accrue(ctx, vaultID, 40)
		require.NoError(t, err)
	}

	scheduler := HarvestScheduler{Repository: h.store, Harvest: h.harvest, BatchSize: 2}
	require.NoError(t, scheduler.RunOnce(ctx))

	for _, contract := range contracts {
		got, err := h.store.GetContract(ctx, contract.ContractID)
		require.NoError(t, err)
		assert.Equal(t, uint64(960), got.StakedShares, contract.VaultID)
		assert.Equal(t, contract.Version+1, got.Version, contract.VaultID)
	}
	payouts, err := h.store.ListPayoutsByRecipient(ctx, "treasury")
	require.NoError(t, err)
	assert.Len(t, payouts, 3)
}

func TestWorkersRequireClock(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	sweeper := SlashSweeper{Repository: h.store, Slash: h.slash}
	require.ErrorIs(t, sweeper.RunOnce(ctx), commands.ErrClockRequired)

	relay := OutboxRelay{Outbox: h.store, Publisher: &capturePublisher{}}
	require.ErrorIs(t, relay.RunOnce(ctx), commands.ErrClockRequired)
}

func TestOutboxRelayPublishesInOrderAndMarksSent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	contract := h.contract(t, "vault_1")
	h.order(t, contract.ContractID)

	publisher := &capturePublisher{}
	relay := OutboxRelay{Outbox: h.store, Publisher: publisher, Clock: h.clock}
	require.NoError(t, relay.RunOnce(ctx))

	require.Len(t, publisher.events, 2)
	assert.Equal(t, "escrow.contract.published", publisher.events[0].EventType)
	assert.Equal(t, "escrow.order.created", publisher.events[1].EventType)
	assert.Equal(t, []string{DefaultOutboxTopic, DefaultOutboxTopic}, publisher.topics)
	assert.Equal(t, contract.ContractID, publisher.events[1].PartitionKey)

	pending, err := h.store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxRelayStopsAtFirstPublishFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	contract := h.contract(t, "vault_1")
	h.order(t, contract.ContractID)

	publisher := &capturePublisher{failOn: "escrow.contract.published"}
	relay := OutboxRelay{Outbox: h.store, Publisher: publisher, Clock: h.clock, Topic: "escrow.test"}
	require.Error(t, relay.RunOnce(ctx))
	assert.Empty(t, publisher.events)

	pending, err := h.store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
