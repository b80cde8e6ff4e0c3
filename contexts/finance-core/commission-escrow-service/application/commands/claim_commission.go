package commands

import (
	"context"
	"log/slog"
	"time"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type ClaimCommissionCommand struct {
	TicketID string
	CallerID string
}

type ClaimCommissionResult struct {
	Ticket   entities.Ticket
	Payout   entities.Payout
	Contract entities.Contract
}

type ClaimCommissionUseCase struct {
	Repository  ports.Repository
	Vault       ports.YieldVault
	Converter   ports.SettlementConverter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute runs the claim in one transaction:
// 1) ownership, order state and claimed checks
// 2) claimed flag flip guarded on claimed = false
// 3) stake withdrawal guarded on contract version
// 4) vault redemption and settlement payout.
// Any failure, including an insufficient stake, aborts every step.
func (u ClaimCommissionUseCase) Execute(ctx context.Context, cmd ClaimCommissionCommand) (result ClaimCommissionResult, err error) {
	defer func(started time.Time) { observe(u.Metrics, "claim_commission", started, err) }(time.Now())
	logger := application.ResolveLogger(u.Logger)
	now, err := currentTime(u.Clock)
	if err != nil {
		return ClaimCommissionResult{}, err
	}

	err = u.Repository.WithinTransaction(ctx, func(ctx context.Context, tx ports.Transaction) error {
		ticket, err := tx.GetTicket(ctx, cmd.TicketID)
		if err != nil {
			return err
		}
		if ticket.DistributorID != cmd.CallerID {
			return domainerrors.ErrNotDistributor
		}
		order, err := tx.GetOrder(ctx, ticket.OrderID)
		if err != nil {
			return err
		}
		if order.Status != entities.OrderStatusConfirmed {
			return domainerrors.ErrOrderNotConfirmed
		}
		if err := ticket.Claim(now); err != nil {
			return err
		}
		if err := tx.MarkTicketClaimed(ctx, ticket.TicketID, now); err != nil {
			return err
		}

		contract, err := tx.GetContract(ctx, ticket.ContractID)
		if err != nil {
			return err
		}
		if err := contract.Withdraw(ticket.Amount, now); err != nil {
			return err
		}
		contract, err = tx.UpdateContract(ctx, contract)
		if err != nil {
			return err
		}

		payout, err := redeemPayout(ctx, tx, u.Vault, u.Converter, u.IDGenerator, payoutRequest{
			contract:    contract,
			orderID:     order.OrderID,
			recipientID: ticket.DistributorID,
			reason:      entities.PayoutReasonCommission,
			shares:      ticket.Amount,
		}, now)
		if err != nil {
			return err
		}

		if err := appendEvent(ctx, tx, u.IDGenerator, commissionClaimedEventType, contract.ContractID, now, map[string]any{
			"ticket_id":      ticket.TicketID,
			"order_id":       order.OrderID,
			"contract_id":    contract.ContractID,
			"distributor_id": ticket.DistributorID,
			"shares":         payout.Shares,
			"amount":         payout.Amount,
			"payout_id":      payout.PayoutID,
		}); err != nil {
			return err
		}
		result = ClaimCommissionResult{Ticket: ticket, Payout: payout, Contract: contract}
		return nil
	})
	if err != nil {
		logger.Warn("claim commission failed",
			"event", "escrow_claim_commission_failed",
			"module", application.ModuleName,
			"layer", "application",
			"ticket_id", cmd.TicketID,
			"caller_id", cmd.CallerID,
			"error", err.Error(),
		)
		return ClaimCommissionResult{}, err
	}

	observePayout(u.Metrics, result.Payout)
	logger.Info("commission claimed",
		"event", "escrow_commission_claimed",
		"module", application.ModuleName,
		"layer", "application",
		"ticket_id", result.Ticket.TicketID,
		"contract_id", result.Contract.ContractID,
		"amount", result.Payout.Amount,
		"staked_shares", result.Contract.StakedShares,
	)
	return result, nil
}
