package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/services"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type HarvestInterestCommand struct {
	ContractID string
	CallerID   string
}

type HarvestInterestResult struct {
	Contract entities.Contract
	Split    services.YieldSplit
	Payouts  []entities.Payout
	NoOp     bool
}

type HarvestInterestUseCase struct {
	Repository  ports.Repository
	Vault       ports.YieldVault
	Converter   ports.SettlementConverter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	// PlatformTreasuryID receives the platform portion. When empty the
	// platform portion is paid to the merchant.
	PlatformTreasuryID string
	Metrics            ports.Metrics
	Logger             *slog.Logger
}

// Execute is permissionless: harvesting only ever pays the contract's two
// beneficiaries. A contract without accrued yield is left untouched.
func (u HarvestInterestUseCase) Execute(ctx context.Context, cmd HarvestInterestCommand) (result HarvestInterestResult, err error) {
	defer func(started time.Time) { observe(u.Metrics, "harvest_interest", started, err) }(time.Now())
	logger := application.ResolveLogger(u.Logger)
	now, err := currentTime(u.Clock)
	if err != nil {
		return HarvestInterestResult{}, err
	}

	err = u.Repository.WithinTransaction(ctx, func(ctx context.Context, tx ports.Transaction) error {
		contract, err := tx.GetContract(ctx, cmd.ContractID)
		if err != nil {
			return err
		}
		preview, err := u.Vault.PreviewRedeem(ctx, contract.VaultID, contract.StakedShares)
		if err != nil {
			return fmt.Errorf("preview redeem on vault %s: %w", contract.VaultID, err)
		}
		interest := services.AccruedInterest(preview, contract.StakedShares)
		if interest == 0 {
			result = HarvestInterestResult{Contract: contract, NoOp: true}
			return nil
		}

		split, err := services.SplitInterest(interest, contract.PlatformShareBPS)
		if err != nil {
			return err
		}
		if err := contract.Withdraw(split.Interest, now); err != nil {
			return err
		}
		contract, err = tx.UpdateContract(ctx, contract)
		if err != nil {
			return err
		}

		treasury := u.platformRecipient(logger, contract)
		payouts := make([]entities.Payout, 0, 2)
		for _, part := range []struct {
			recipient string
			reason    entities.PayoutReason
			shares    uint64
		}{
			{recipient: treasury, reason: entities.PayoutReasonPlatformYield, shares: split.PlatformShare},
			{recipient: contract.MerchantID, reason: entities.PayoutReasonMerchantYield, shares: split.MerchantShare},
		} {
			if part.shares == 0 {
				continue
			}
			payout, err := redeemPayout(ctx, tx, u.Vault, u.Converter, u.IDGenerator, payoutRequest{
				contract:    contract,
				recipientID: part.recipient,
				reason:      part.reason,
				shares:      part.shares,
			}, now)
			if err != nil {
				return err
			}
			payouts = append(payouts, payout)
		}

		if err := appendEvent(ctx, tx, u.IDGenerator, yieldHarvestedEventType, contract.ContractID, now, map[string]any{
			"contract_id":    contract.ContractID,
			"interest":       split.Interest,
			"platform_share": split.PlatformShare,
			"merchant_share": split.MerchantShare,
			"platform_id":    treasury,
			"merchant_id":    contract.MerchantID,
			"harvested_by":   cmd.CallerID,
		}); err != nil {
			return err
		}
		result = HarvestInterestResult{Contract: contract, Split: split, Payouts: payouts}
		return nil
	})
	if err != nil {
		logger.Error("harvest interest failed",
			"event", "escrow_harvest_failed",
			"module", application.ModuleName,
			"layer", "application",
			"contract_id", cmd.ContractID,
			"error", err.Error(),
		)
		return HarvestInterestResult{}, err
	}
	if result.NoOp {
		logger.Debug("harvest skipped without accrued yield",
			"event", "escrow_harvest_noop",
			"module", application.ModuleName,
			"layer", "application",
			"contract_id", cmd.ContractID,
		)
		return result, nil
	}

	for _, payout := range result.Payouts {
		observePayout(u.Metrics, payout)
	}
	logger.Info("interest harvested",
		"event", "escrow_interest_harvested",
		"module", application.ModuleName,
		"layer", "application",
		"contract_id", result.Contract.ContractID,
		"interest", result.Split.Interest,
		"platform_share", result.Split.PlatformShare,
		"merchant_share", result.Split.MerchantShare,
	)
	return result, nil
}

func (u HarvestInterestUseCase) platformRecipient(logger *slog.Logger, contract entities.Contract) string {
	if treasury := strings.TrimSpace(u.PlatformTreasuryID); treasury != "" {
		return treasury
	}
	logger.Warn("platform treasury not configured, paying platform share to merchant",
		"event", "escrow_harvest_treasury_fallback",
		"module", application.ModuleName,
		"layer", "application",
		"contract_id", contract.ContractID,
		"merchant_id", contract.MerchantID,
	)
	return contract.MerchantID
}
