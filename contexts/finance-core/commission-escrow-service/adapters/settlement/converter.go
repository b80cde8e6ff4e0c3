package settlement

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"github.com/shopspring/decimal"
)

// RateConverter prices the vault asset at a fixed number of settlement units.
// Both directions round down.
type RateConverter struct {
	rate decimal.Decimal
}

var _ ports.SettlementConverter = RateConverter{}

// NewRateConverter parses rate as settlement units per vault asset, e.g. "1" or "0.998".
func NewRateConverter(rate string) (RateConverter, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return RateConverter{}, fmt.Errorf("%w: parse rate %q: %v", domainerrors.ErrConversionFailed, rate, err)
	}
	if !parsed.IsPositive() {
		return RateConverter{}, fmt.Errorf("%w: rate must be positive, got %s", domainerrors.ErrConversionFailed, parsed)
	}
	return RateConverter{rate: parsed}, nil
}

// ParityConverter is the 1:1 converter used when the vault asset is the settlement currency.
func ParityConverter() RateConverter {
	return RateConverter{rate: decimal.NewFromInt(1)}
}

func (c RateConverter) Rate() string {
	return c.rate.String()
}

func (c RateConverter) ToVaultAsset(_ context.Context, amount uint64) (uint64, error) {
	if !c.rate.IsPositive() {
		return 0, domainerrors.ErrConversionFailed
	}
	quotient, _ := fromUint64(amount).QuoRem(c.rate, 0)
	return toUint64(quotient)
}

func (c RateConverter) ToSettlement(_ context.Context, assets uint64) (uint64, error) {
	if !c.rate.IsPositive() {
		return 0, domainerrors.ErrConversionFailed
	}
	return toUint64(fromUint64(assets).Mul(c.rate).Floor())
}

func fromUint64(value uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(value), 0)
}

func toUint64(value decimal.Decimal) (uint64, error) {
	integer := value.Floor().BigInt()
	if integer.Sign() < 0 || !integer.IsUint64() {
		return 0, domainerrors.ErrAmountOverflow
	}
	return integer.Uint64(), nil
}
