package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

var rejectionErrors = []error{
	domainerrors.ErrNotMerchant,
	domainerrors.ErrNotDistributor,
	domainerrors.ErrNotVaultOperator,
	domainerrors.ErrOrderNotPending,
	domainerrors.ErrOrderNotConfirmed,
	domainerrors.ErrAlreadyClaimed,
	domainerrors.ErrTicketAlreadyIssued,
	domainerrors.ErrShareTooHigh,
	domainerrors.ErrCommissionTooHigh,
	domainerrors.ErrInvalidDeposit,
	domainerrors.ErrInvalidContract,
	domainerrors.ErrInvalidOrder,
	domainerrors.ErrInvalidYield,
	domainerrors.ErrDeadlineNotReached,
	domainerrors.ErrInsufficientStake,
	domainerrors.ErrContractNotFound,
	domainerrors.ErrOrderNotFound,
	domainerrors.ErrTicketNotFound,
}

// IsRejection reports whether err is a precondition failure rather than an
// infrastructure fault.
func IsRejection(err error) bool {
	for _, target := range rejectionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func observe(metrics ports.Metrics, operation string, started time.Time, err error) {
	if metrics == nil {
		return
	}
	outcome := outcomeOK
	switch {
	case err == nil:
	case IsRejection(err):
		outcome = outcomeRejected
	default:
		outcome = outcomeFailed
	}
	metrics.ObserveOperation(operation, outcome, time.Since(started))
}

func observePayout(metrics ports.Metrics, payout entities.Payout) {
	if metrics == nil {
		return
	}
	metrics.ObservePayout(string(payout.Reason), payout.Amount)
}

// ErrClockRequired is returned by use cases wired without a clock.
var ErrClockRequired = errors.New("escrow use case has no clock")

func currentTime(clock ports.Clock) (time.Time, error) {
	if clock == nil {
		return time.Time{}, ErrClockRequired
	}
	return clock.Now().UTC(), nil
}

// toVaultAsset treats a missing converter as 1:1.
func toVaultAsset(ctx context.Context, converter ports.SettlementConverter, amount uint64) (uint64, error) {
	if converter == nil {
		return amount, nil
	}
	assets, err := converter.ToVaultAsset(ctx, amount)
	if err != nil {
		return 0, fmt.Errorf("convert %d to vault asset: %w", amount, err)
	}
	return assets, nil
}

func toSettlement(ctx context.Context, converter ports.SettlementConverter, assets uint64) (uint64, error) {
	if converter == nil {
		return assets, nil
	}
	amount, err := converter.ToSettlement(ctx, assets)
	if err != nil {
		return 0, fmt.Errorf("convert %d vault assets to settlement: %w", assets, err)
	}
	return amount, nil
}

type payoutRequest struct {
	contract    entities.Contract
	orderID     string
	recipientID string
	reason      entities.PayoutReason
	shares      uint64
}

// redeemPayout redeems shares already withdrawn from the contract and
// records the resulting settlement transfer. The caller owns the stake update.
func redeemPayout(
	ctx context.Context,
	tx ports.Transaction,
	vault ports.YieldVault,
	converter ports.SettlementConverter,
	ids ports.IDGenerator,
	req payoutRequest,
	now time.Time,
) (entities.Payout, error) {
	assets, err := vault.Redeem(ctx, req.contract.VaultID, req.shares)
	if err != nil {
		return entities.Payout{}, fmt.Errorf("redeem %d shares from vault %s: %w", req.shares, req.contract.VaultID, err)
	}
	amount, err := toSettlement(ctx, converter, assets)
	if err != nil {
		return entities.Payout{}, err
	}
	payoutID, err := ids.NewID(ctx)
	if err != nil {
		return entities.Payout{}, err
	}
	payout := entities.Payout{
		PayoutID:    payoutID,
		ContractID:  req.contract.ContractID,
		OrderID:     req.orderID,
		RecipientID: req.recipientID,
		Reason:      req.reason,
		Shares:      req.shares,
		VaultAssets: assets,
		Amount:      amount,
		CreatedAt:   now.UTC(),
	}
	if err := tx.CreatePayout(ctx, payout); err != nil {
		return entities.Payout{}, err
	}
	return payout, nil
}
