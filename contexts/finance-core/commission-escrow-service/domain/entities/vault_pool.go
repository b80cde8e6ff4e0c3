package entities

import (
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/services"
)

// VaultPool is the share accounting of one yield vault. Shares are minted
// 1:1 into an empty pool and pro rata afterwards; conversions round down in
// the pool's favour.
type VaultPool struct {
	VaultID     string
	TotalAssets uint64
	TotalShares uint64
}

// Deposit adds assets and returns the shares minted for them.
func (p *VaultPool) Deposit(assets uint64) (uint64, error) {
	shares := assets
	if p.TotalShares > 0 {
		if p.TotalAssets == 0 {
			return 0, domainerrors.ErrVaultInsufficientLiquidity
		}
		minted, err := services.MulDivFloor(assets, p.TotalShares, p.TotalAssets)
		if err != nil {
			return 0, err
		}
		shares = minted
	}
	if shares == 0 {
		return 0, nil
	}
	if p.TotalAssets+assets < p.TotalAssets || p.TotalShares+shares < p.TotalShares {
		return 0, domainerrors.ErrAmountOverflow
	}
	p.TotalAssets += assets
	p.TotalShares += shares
	return shares, nil
}

// Redeem burns shares and returns the assets they were worth. It never
// pays out less than the shares are worth to cover a shortfall.
func (p *VaultPool) Redeem(shares uint64) (uint64, error) {
	assets, err := p.PreviewRedeem(shares)
	if err != nil {
		return 0, err
	}
	p.TotalShares -= shares
	p.TotalAssets -= assets
	return assets, nil
}

func (p VaultPool) PreviewRedeem(shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, nil
	}
	if shares > p.TotalShares {
		return 0, domainerrors.ErrVaultInsufficientLiquidity
	}
	return services.MulDivFloor(shares, p.TotalAssets, p.TotalShares)
}

// Accrue adds yield without minting shares, raising the value of every
// outstanding share.
func (p *VaultPool) Accrue(assets uint64) error {
	if assets == 0 {
		return domainerrors.ErrInvalidYield
	}
	if p.TotalShares == 0 {
		return domainerrors.ErrVaultInsufficientLiquidity
	}
	if p.TotalAssets+assets < p.TotalAssets {
		return domainerrors.ErrAmountOverflow
	}
	p.TotalAssets += assets
	return nil
}
