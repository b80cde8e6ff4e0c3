package services

import domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"

// YieldSplit is the division of harvested interest between platform and merchant.
type YieldSplit struct {
	Interest      uint64
	PlatformShare uint64
	MerchantShare uint64
}

// AccruedInterest is the excess a share balance would redeem for over its
// nominal share count. A vault that lost value yields zero, never an underflow.
func AccruedInterest(previewAssets uint64, stakedShares uint64) uint64 {
	if previewAssets <= stakedShares {
		return 0
	}
	return previewAssets - stakedShares
}

// SplitInterest routes floor(interest*platformShareBPS/10000) to the platform
// and the remainder to the merchant, so both parts always sum to interest.
func SplitInterest(interest uint64, platformShareBPS uint32) (YieldSplit, error) {
	if platformShareBPS > MaxBasisPoints {
		return YieldSplit{}, domainerrors.ErrShareTooHigh
	}
	platform, err := MulDivFloor(interest, uint64(platformShareBPS), uint64(MaxBasisPoints))
	if err != nil {
		return YieldSplit{}, err
	}
	return YieldSplit{
		Interest:      interest,
		PlatformShare: platform,
		MerchantShare: interest - platform,
	}, nil
}
