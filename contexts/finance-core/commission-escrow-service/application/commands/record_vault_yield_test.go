package commands_test

import (
	"context"
	"testing"

	"commissionvault/contexts/finance-core/commission-escrow-service/application/commands"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operatorID = "vault_ops"

func (f *fixture) recordYield() commands.RecordVaultYieldUseCase {
	return commands.RecordVaultYieldUseCase{
		Repository:  f.store,
		Vault:       f.vault,
		Clock:       f.clock,
		IDGenerator: f.store,
		OperatorID:  operatorID,
		Metrics:     f.metrics,
	}
}

func TestRecordedYieldFeedsHarvest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contract := f.publishContract(t, 2000)

	pool, err := f.recordYield().Execute(ctx, commands.RecordVaultYieldCommand{VaultID: vaultID, CallerID: operatorID, Assets: 100})
	require.NoError(t, err)
	assert.Equal(t, entities.VaultPool{VaultID: vaultID, TotalAssets: 2100, TotalShares: 2000}, pool)

	envelopes := f.store.OutboxEnvelopes()
	last := envelopes[len(envelopes)-1]
	assert.Equal(t, "escrow.vault.yield_recorded", last.EventType)
	assert.Equal(t, "vault_id", last.PartitionKeyPath)
	assert.Equal(t, vaultID, last.PartitionKey)

	result, err := f.harvest.Execute(ctx, commands.HarvestInterestCommand{ContractID: contract.ContractID, CallerID: "keeper"})
	require.NoError(t, err)
	assert.False(t, result.NoOp)
	assert.Equal(t, uint64(100), result.Split.Interest)
	assert.Equal(t, []string{"ok"}, f.metrics.outcomes["record_vault_yield"])
}

func TestRecordYieldRejectsWithoutTouchingPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.publishContract(t, 2000)
	before := len(f.store.OutboxEnvelopes())

	_, err := f.recordYield().Execute(ctx, commands.RecordVaultYieldCommand{VaultID: vaultID, CallerID: merchantID, Assets: 100})
	require.ErrorIs(t, err, domainerrors.ErrNotVaultOperator)

	closed := f.recordYield()
	closed.OperatorID = ""
	_, err = closed.Execute(ctx, commands.RecordVaultYieldCommand{VaultID: vaultID, Assets: 100})
	require.ErrorIs(t, err, domainerrors.ErrNotVaultOperator)

	_, err = f.recordYield().Execute(ctx, commands.RecordVaultYieldCommand{VaultID: vaultID, CallerID: operatorID})
	require.ErrorIs(t, err, domainerrors.ErrInvalidYield)

	// a pool without shares has nobody to credit
	_, err = f.recordYield().Execute(ctx, commands.RecordVaultYieldCommand{VaultID: "vault_empty", CallerID: operatorID, Assets: 5})
	require.ErrorIs(t, err, domainerrors.ErrVaultInsufficientLiquidity)

	pool, err := f.vault.GetPool(ctx, vaultID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), pool.TotalAssets)
	assert.Len(t, f.store.OutboxEnvelopes(), before)
	assert.True(t, commands.IsRejection(domainerrors.ErrNotVaultOperator))
	assert.True(t, commands.IsRejection(domainerrors.ErrInvalidYield))
}
