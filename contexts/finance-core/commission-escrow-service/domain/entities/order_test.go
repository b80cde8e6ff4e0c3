package entities

import (
	"testing"
	"time"

	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testContract(t *testing.T) Contract {
	t.Helper()
	contract, err := NewContract("contract-1", ContractTerms{
		MerchantID:       "merchant-1",
		SKU:              "sku-1",
		CommissionBPS:    500,
		PlatformShareBPS: 2000,
		VaultID:          "vault-1",
	}, 10_000, baseTime)
	require.NoError(t, err)
	return contract
}

func testOrder(t *testing.T) Order {
	t.Helper()
	order, err := NewOrder("order-1", testContract(t), "distributor-1", 1000, "hash", baseTime, 0)
	require.NoError(t, err)
	return order
}

func TestNewOrderComputesCommissionAndDeadline(t *testing.T) {
	order := testOrder(t)

	assert.Equal(t, uint64(50), order.Commission)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, "merchant-1", order.MerchantID)
	assert.Equal(t, baseTime.Add(72*time.Hour), order.Deadline)
}

func TestNewOrderRejectsMerchantAsDistributor(t *testing.T) {
	_, err := NewOrder("order-1", testContract(t), "merchant-1", 1000, "", baseTime, time.Hour)
	require.ErrorIs(t, err, domainerrors.ErrNotDistributor)
}

func TestNewOrderRejectsZeroAmount(t *testing.T) {
	_, err := NewOrder("order-1", testContract(t), "distributor-1", 0, "", baseTime, time.Hour)
	require.ErrorIs(t, err, domainerrors.ErrInvalidOrder)
}

func TestConfirmThenDisputeFails(t *testing.T) {
	order := testOrder(t)
	require.NoError(t, order.Confirm("merchant-1", baseTime))
	require.ErrorIs(t, order.Dispute("merchant-1", baseTime), domainerrors.ErrOrderNotPending)
	assert.Equal(t, OrderStatusConfirmed, order.Status)
}

func TestDisputeThenConfirmFails(t *testing.T) {
	order := testOrder(t)
	require.NoError(t, order.Dispute("merchant-1", baseTime))
	require.ErrorIs(t, order.Confirm("merchant-1", baseTime), domainerrors.ErrOrderNotPending)
	assert.Equal(t, OrderStatusDisputed, order.Status)
}

func TestDisputeTwiceReportsAlreadyDisputed(t *testing.T) {
	order := testOrder(t)
	require.NoError(t, order.Dispute("merchant-1", baseTime))

	err := order.Dispute("merchant-1", baseTime)
	require.ErrorIs(t, err, domainerrors.ErrAlreadyDisputed)
	require.ErrorIs(t, err, domainerrors.ErrOrderNotPending)
}

func TestOnlyMerchantCanConfirmOrDispute(t *testing.T) {
	order := testOrder(t)
	require.ErrorIs(t, order.Confirm("distributor-1", baseTime), domainerrors.ErrNotMerchant)
	require.ErrorIs(t, order.Dispute("someone", baseTime), domainerrors.ErrNotMerchant)
	assert.Equal(t, OrderStatusPending, order.Status)
}

func TestSlashGating(t *testing.T) {
	deadline := baseTime.Add(DefaultGracePeriod)

	t.Run("pending before deadline", func(t *testing.T) {
		order := testOrder(t)
		require.ErrorIs(t, order.Slash(deadline), domainerrors.ErrDeadlineNotReached)
		assert.Equal(t, OrderStatusPending, order.Status)
	})

	t.Run("pending after deadline", func(t *testing.T) {
		order := testOrder(t)
		require.NoError(t, order.Slash(deadline.Add(time.Nanosecond)))
		assert.Equal(t, OrderStatusSlashed, order.Status)
	})

	t.Run("disputed after deadline", func(t *testing.T) {
		order := testOrder(t)
		require.NoError(t, order.Dispute("merchant-1", baseTime))
		require.NoError(t, order.Slash(deadline.Add(time.Second)))
		assert.Equal(t, OrderStatusSlashed, order.Status)
	})

	t.Run("confirmed never slashable", func(t *testing.T) {
		order := testOrder(t)
		require.NoError(t, order.Confirm("merchant-1", baseTime))
		require.Error(t, order.Slash(baseTime))
		require.ErrorIs(t, order.Slash(deadline.Add(time.Hour)), domainerrors.ErrOrderNotPending)
		assert.Equal(t, OrderStatusConfirmed, order.Status)
	})

	t.Run("slashed is terminal", func(t *testing.T) {
		order := testOrder(t)
		require.NoError(t, order.Slash(deadline.Add(time.Second)))
		require.ErrorIs(t, order.Slash(deadline.Add(time.Hour)), domainerrors.ErrOrderNotPending)
		require.ErrorIs(t, order.Confirm("merchant-1", deadline), domainerrors.ErrOrderNotPending)
	})
}
