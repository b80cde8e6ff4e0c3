package commands

import (
	"context"
	"log/slog"
	"time"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type SlashOrderCommand struct {
	OrderID  string
	CallerID string
}

type SlashOrderResult struct {
	Order        entities.Order
	Compensation *entities.Payout
}

type SlashOrderUseCase struct {
	Repository  ports.Repository
	Vault       ports.YieldVault
	Converter   ports.SettlementConverter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Policy      entities.SlashPolicy
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute is permissionless; CallerID is recorded but not checked.
func (u SlashOrderUseCase) Execute(ctx context.Context, cmd SlashOrderCommand) (result SlashOrderResult, err error) {
	defer func(started time.Time) { observe(u.Metrics, "slash_order", started, err) }(time.Now())
	logger := application.ResolveLogger(u.Logger)
	now, err := currentTime(u.Clock)
	if err != nil {
		return SlashOrderResult{}, err
	}
	policy := u.policy()

	err = u.Repository.WithinTransaction(ctx, func(ctx context.Context, tx ports.Transaction) error {
		order, err := tx.GetOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		previous := order.Status
		if err := order.Slash(now); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, order, previous); err != nil {
			return err
		}

		var compensation *entities.Payout
		if policy == entities.SlashPolicyCompensateDistributor && order.Commission > 0 {
			payout, err := u.compensate(ctx, tx, order, now)
			if err != nil {
				return err
			}
			compensation = &payout
		}

		data := map[string]any{
			"order_id":        order.OrderID,
			"contract_id":     order.ContractID,
			"previous_status": string(previous),
			"slashed_by":      cmd.CallerID,
			"policy":          string(policy),
		}
		if compensation != nil {
			data["compensation_payout_id"] = compensation.PayoutID
			data["compensation_amount"] = compensation.Amount
		}
		if err := appendEvent(ctx, tx, u.IDGenerator, orderSlashedEventType, order.ContractID, now, data); err != nil {
			return err
		}
		result = SlashOrderResult{Order: order, Compensation: compensation}
		return nil
	})
	if err != nil {
		logger.Warn("slash order failed",
			"event", "escrow_slash_order_failed",
			"module", application.ModuleName,
			"layer", "application",
			"order_id", cmd.OrderID,
			"caller_id", cmd.CallerID,
			"error", err.Error(),
		)
		return SlashOrderResult{}, err
	}

	if result.Compensation != nil {
		observePayout(u.Metrics, *result.Compensation)
	}
	logger.Info("order slashed",
		"event", "escrow_order_slashed",
		"module", application.ModuleName,
		"layer", "application",
		"order_id", result.Order.OrderID,
		"contract_id", result.Order.ContractID,
		"policy", string(policy),
	)
	return result, nil
}

// compensate pays the order's commission to its distributor out of the stake.
func (u SlashOrderUseCase) compensate(
	ctx context.Context,
	tx ports.Transaction,
	order entities.Order,
	now time.Time,
) (entities.Payout, error) {
	contract, err := tx.GetContract(ctx, order.ContractID)
	if err != nil {
		return entities.Payout{}, err
	}
	if err := contract.Withdraw(order.Commission, now); err != nil {
		return entities.Payout{}, err
	}
	contract, err = tx.UpdateContract(ctx, contract)
	if err != nil {
		return entities.Payout{}, err
	}
	return redeemPayout(ctx, tx, u.Vault, u.Converter, u.IDGenerator, payoutRequest{
		contract:    contract,
		orderID:     order.OrderID,
		recipientID: order.DistributorID,
		reason:      entities.PayoutReasonSlashCompensation,
		shares:      order.Commission,
	}, now)
}

func (u SlashOrderUseCase) policy() entities.SlashPolicy {
	if u.Policy.Valid() {
		return u.Policy
	}
	return entities.SlashPolicyRetain
}
