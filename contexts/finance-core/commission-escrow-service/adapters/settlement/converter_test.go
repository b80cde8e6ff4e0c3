package settlement

import (
	"context"
	"math"
	"testing"

	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParityConverterIsIdentity(t *testing.T) {
	converter := ParityConverter()
	for _, amount := range []uint64{0, 1, 50, math.MaxUint64} {
		assets, err := converter.ToVaultAsset(context.Background(), amount)
		require.NoError(t, err)
		assert.Equal(t, amount, assets)

		settled, err := converter.ToSettlement(context.Background(), amount)
		require.NoError(t, err)
		assert.Equal(t, amount, settled)
	}
}

func TestRateConverterRoundsDown(t *testing.T) {
	converter, err := NewRateConverter("0.998")
	require.NoError(t, err)

	settled, err := converter.ToSettlement(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(998), settled)

	settled, err = converter.ToSettlement(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, uint64(997), settled)

	// 1000 / 0.998 = 1002.004...
	assets, err := converter.ToVaultAsset(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1002), assets)
}

func TestRateConverterRejectsBadRates(t *testing.T) {
	for _, rate := range []string{"", "abc", "0", "-1.5"} {
		_, err := NewRateConverter(rate)
		require.ErrorIs(t, err, domainerrors.ErrConversionFailed, rate)
	}

	_, err := RateConverter{}.ToSettlement(context.Background(), 10)
	require.ErrorIs(t, err, domainerrors.ErrConversionFailed)
}

func TestRateConverterOverflow(t *testing.T) {
	converter, err := NewRateConverter("2")
	require.NoError(t, err)
	_, err = converter.ToSettlement(context.Background(), math.MaxUint64)
	require.ErrorIs(t, err, domainerrors.ErrAmountOverflow)
}
