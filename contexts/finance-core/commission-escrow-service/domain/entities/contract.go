package entities

import (
	"strings"
	"time"

	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/services"
)

// Contract is a merchant's published distribution terms together with the
// stake it holds in a yield vault.
type Contract struct {
	ContractID    string
	MerchantID    string
	SKU           string
	CommissionBPS uint32
	// MinSecurityRateBPS is recorded for off-chain policy. No transition reads it.
	MinSecurityRateBPS uint32
	VaultID            string
	StakedShares       uint64
	PlatformShareBPS   uint32
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ContractTerms struct {
	MerchantID         string
	SKU                string
	CommissionBPS      uint32
	MinSecurityRateBPS uint32
	PlatformShareBPS   uint32
	VaultID            string
}

// ValidateTerms runs every publish-time check that does not need an id or a stake.
func ValidateTerms(terms ContractTerms) error {
	if terms.PlatformShareBPS > services.MaxBasisPoints {
		return domainerrors.ErrShareTooHigh
	}
	if terms.CommissionBPS > services.MaxBasisPoints {
		return domainerrors.ErrCommissionTooHigh
	}
	if strings.TrimSpace(terms.MerchantID) == "" ||
		strings.TrimSpace(terms.SKU) == "" ||
		strings.TrimSpace(terms.VaultID) == "" {
		return domainerrors.ErrInvalidContract
	}
	return nil
}

func NewContract(contractID string, terms ContractTerms, stakedShares uint64, now time.Time) (Contract, error) {
	if err := ValidateTerms(terms); err != nil {
		return Contract{}, err
	}
	if strings.TrimSpace(contractID) == "" {
		return Contract{}, domainerrors.ErrInvalidContract
	}
	return Contract{
		ContractID:         contractID,
		MerchantID:         strings.TrimSpace(terms.MerchantID),
		SKU:                strings.TrimSpace(terms.SKU),
		CommissionBPS:      terms.CommissionBPS,
		MinSecurityRateBPS: terms.MinSecurityRateBPS,
		VaultID:            strings.TrimSpace(terms.VaultID),
		StakedShares:       stakedShares,
		PlatformShareBPS:   terms.PlatformShareBPS,
		Version:            1,
		CreatedAt:          now.UTC(),
		UpdatedAt:          now.UTC(),
	}, nil
}

// Withdraw removes shares from the stake. It never leaves a partial balance
// change behind: either the full amount is removed or nothing is.
func (c *Contract) Withdraw(shares uint64, now time.Time) error {
	if shares > c.StakedShares {
		return domainerrors.ErrInsufficientStake
	}
	c.StakedShares -= shares
	c.UpdatedAt = now.UTC()
	return nil
}

func (c Contract) CommissionFor(amount uint64) (uint64, error) {
	return services.ApplyBasisPoints(amount, c.CommissionBPS)
}
