package postgresadapter

import (
	"fmt"
	"math"
	"testing"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitsSurviveNumericRoundTrip(t *testing.T) {
	for _, value := range []uint64{0, 1, 50, math.MaxUint64} {
		assert.Equal(t, value, decimalToUnits(unitsToDecimal(value)))
	}
	assert.Equal(t, "18446744073709551615", unitsToDecimal(math.MaxUint64).String())
	assert.Equal(t, uint64(0), decimalToUnits(decimal.NewFromInt(-5)))
}

func TestContractModelMapping(t *testing.T) {
	created := time.Date(2026, 3, 1, 14, 0, 0, 0, time.FixedZone("x", 2*3600))
	contract, err := entities.NewContract("contract_1", entities.ContractTerms{
		MerchantID:       "merchant_1",
		SKU:              "sku_1",
		CommissionBPS:    500,
		PlatformShareBPS: 1000,
		VaultID:          "vault_1",
	}, 2000, created)
	require.NoError(t, err)

	model := contractModelFromEntity(contract)
	assert.Equal(t, "escrow_contracts", model.TableName())
	assert.Equal(t, time.UTC, model.CreatedAt.Location())

	back := model.toEntity()
	assert.Equal(t, contract.StakedShares, back.StakedShares)
	assert.Equal(t, contract.CommissionBPS, back.CommissionBPS)
	assert.True(t, contract.CreatedAt.Equal(back.CreatedAt))
}

func TestUniqueViolationDetection(t *testing.T) {
	err := fmt.Errorf("insert ticket: %w", &pgconn.PgError{Code: "23505", ConstraintName: "escrow_tickets_order_unique"})
	assert.True(t, isUniqueViolation(err))
	assert.Equal(t, "escrow_tickets_order_unique", constraintName(err))

	other := &pgconn.PgError{Code: "23503"}
	assert.False(t, isUniqueViolation(other))
	assert.Empty(t, constraintName(fmt.Errorf("plain")))
}

func TestNormalizeOptionalTime(t *testing.T) {
	assert.Nil(t, normalizeOptionalTime(nil))
	local := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("y", -3*3600))
	got := normalizeOptionalTime(&local)
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(local))
}

func TestVaultPoolModelMapping(t *testing.T) {
	pool := entities.VaultPool{VaultID: "vault_1", TotalAssets: math.MaxUint64, TotalShares: 2000}

	model := vaultPoolModelFromEntity(pool)
	assert.Equal(t, "escrow_vault_pools", model.TableName())
	assert.Equal(t, "18446744073709551615", model.TotalAssets.String())
	assert.Equal(t, pool, model.toEntity())
}
