package queries

import (
	"context"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/services"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type HarvestPreview struct {
	ContractID    string
	StakedShares  uint64
	PreviewAssets uint64
	Split         services.YieldSplit
}

// PreviewHarvestUseCase reports what harvest_interest would split right now
// without withdrawing anything.
type PreviewHarvestUseCase struct {
	Repository ports.Repository
	Vault      ports.YieldVault
}

func (u PreviewHarvestUseCase) Execute(ctx context.Context, contractID string) (HarvestPreview, error) {
	contract, err := u.Repository.GetContract(ctx, contractID)
	if err != nil {
		return HarvestPreview{}, err
	}
	assets, err := u.Vault.PreviewRedeem(ctx, contract.VaultID, contract.StakedShares)
	if err != nil {
		return HarvestPreview{}, err
	}
	split, err := services.SplitInterest(services.AccruedInterest(assets, contract.StakedShares), contract.PlatformShareBPS)
	if err != nil {
		return HarvestPreview{}, err
	}
	return HarvestPreview{
		ContractID:    contract.ContractID,
		StakedShares:  contract.StakedShares,
		PreviewAssets: assets,
		Split:         split,
	}, nil
}

// GetVaultPoolUseCase reads a vault's pool totals. Unknown vaults read as empty.
type GetVaultPoolUseCase struct {
	Vault ports.VaultLedger
}

func (u GetVaultPoolUseCase) Execute(ctx context.Context, vaultID string) (entities.VaultPool, error) {
	return u.Vault.GetPool(ctx, vaultID)
}
