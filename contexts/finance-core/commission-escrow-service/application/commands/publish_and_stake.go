package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type PublishAndStakeCommand struct {
	MerchantID         string
	SKU                string
	CommissionBPS      uint32
	MinSecurityRateBPS uint32
	PlatformShareBPS   uint32
	VaultID            string
	Deposit            uint64
}

type PublishAndStakeResult struct {
	Contract    entities.Contract
	VaultAssets uint64
}

type PublishAndStakeUseCase struct {
	Repository  ports.Repository
	Vault       ports.YieldVault
	Converter   ports.SettlementConverter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute validates terms before touching the vault, so a rejected
// publication never moves value.
func (u PublishAndStakeUseCase) Execute(ctx context.Context, cmd PublishAndStakeCommand) (result PublishAndStakeResult, err error) {
	defer func(started time.Time) { observe(u.Metrics, "publish_and_stake", started, err) }(time.Now())
	logger := application.ResolveLogger(u.Logger)

	terms := entities.ContractTerms{
		MerchantID:         cmd.MerchantID,
		SKU:                cmd.SKU,
		CommissionBPS:      cmd.CommissionBPS,
		MinSecurityRateBPS: cmd.MinSecurityRateBPS,
		PlatformShareBPS:   cmd.PlatformShareBPS,
		VaultID:            cmd.VaultID,
	}
	if err := entities.ValidateTerms(terms); err != nil {
		logger.Warn("publish contract rejected",
			"event", "escrow_publish_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"merchant_id", cmd.MerchantID,
			"sku", cmd.SKU,
			"error", err.Error(),
		)
		return PublishAndStakeResult{}, err
	}
	if cmd.Deposit == 0 {
		return PublishAndStakeResult{}, domainerrors.ErrInvalidDeposit
	}

	contractID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return PublishAndStakeResult{}, err
	}
	now, err := currentTime(u.Clock)
	if err != nil {
		return PublishAndStakeResult{}, err
	}

	var contract entities.Contract
	var assets uint64
	err = u.Repository.WithinTransaction(ctx, func(ctx context.Context, tx ports.Transaction) error {
		converted, err := toVaultAsset(ctx, u.Converter, cmd.Deposit)
		if err != nil {
			return err
		}
		shares, err := u.Vault.Deposit(ctx, terms.VaultID, converted)
		if err != nil {
			return fmt.Errorf("deposit into vault %s: %w", terms.VaultID, err)
		}
		if shares == 0 {
			return domainerrors.ErrInvalidDeposit
		}

		created, err := entities.NewContract(contractID, terms, shares, now)
		if err != nil {
			return err
		}
		if err := tx.CreateContract(ctx, created); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, u.IDGenerator, contractPublishedEventType, created.ContractID, now, map[string]any{
			"contract_id":        created.ContractID,
			"merchant_id":        created.MerchantID,
			"sku":                created.SKU,
			"commission_bps":     created.CommissionBPS,
			"platform_share_bps": created.PlatformShareBPS,
			"vault_id":           created.VaultID,
			"deposit":            cmd.Deposit,
			"staked_shares":      created.StakedShares,
		}); err != nil {
			return err
		}
		contract = created
		assets = converted
		return nil
	})
	if err != nil {
		logger.Error("publish contract failed",
			"event", "escrow_publish_failed",
			"module", application.ModuleName,
			"layer", "application",
			"merchant_id", cmd.MerchantID,
			"vault_id", cmd.VaultID,
			"error", err.Error(),
		)
		return PublishAndStakeResult{}, err
	}

	logger.Info("contract published and staked",
		"event", "escrow_contract_published",
		"module", application.ModuleName,
		"layer", "application",
		"contract_id", contract.ContractID,
		"merchant_id", contract.MerchantID,
		"vault_id", contract.VaultID,
		"staked_shares", contract.StakedShares,
	)
	return PublishAndStakeResult{Contract: contract, VaultAssets: assets}, nil
}
