package services

import (
	"math/bits"

	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
)

// MaxBasisPoints is the denominator for every rate carried by a contract.
const MaxBasisPoints uint32 = 10_000

// ApplyBasisPoints returns floor(amount * bps / 10000). bps above
// MaxBasisPoints is rejected so the result never exceeds amount.
func ApplyBasisPoints(amount uint64, bps uint32) (uint64, error) {
	if bps > MaxBasisPoints {
		return 0, domainerrors.ErrCommissionTooHigh
	}
	return MulDivFloor(amount, uint64(bps), uint64(MaxBasisPoints))
}

// MulDivFloor computes floor(a*b/denominator) with a 128-bit intermediate.
func MulDivFloor(a, b, denominator uint64) (uint64, error) {
	if denominator == 0 {
		return 0, domainerrors.ErrAmountOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= denominator {
		return 0, domainerrors.ErrAmountOverflow
	}
	quotient, _ := bits.Div64(hi, lo, denominator)
	return quotient, nil
}
