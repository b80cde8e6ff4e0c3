package commands

import (
	"context"
	"log/slog"
	"time"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type DisputeOrderCommand struct {
	OrderID  string
	CallerID string
}

type DisputeOrderUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (u DisputeOrderUseCase) Execute(ctx context.Context, cmd DisputeOrderCommand) (order entities.Order, err error) {
	defer func(started time.Time) { observe(u.Metrics, "dispute_order", started, err) }(time.Now())
	logger := application.ResolveLogger(u.Logger)
	now, err := currentTime(u.Clock)
	if err != nil {
		return entities.Order{}, err
	}

	err = u.Repository.WithinTransaction(ctx, func(ctx context.Context, tx ports.Transaction) error {
		current, err := tx.GetOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := current.Dispute(cmd.CallerID, now); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, current, entities.OrderStatusPending); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, u.IDGenerator, orderDisputedEventType, current.ContractID, now, map[string]any{
			"order_id":       current.OrderID,
			"contract_id":    current.ContractID,
			"distributor_id": current.DistributorID,
			"evidence_hash":  current.EvidenceHash,
		}); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		logger.Warn("dispute order failed",
			"event", "escrow_dispute_order_failed",
			"module", application.ModuleName,
			"layer", "application",
			"order_id", cmd.OrderID,
			"caller_id", cmd.CallerID,
			"error", err.Error(),
		)
		return entities.Order{}, err
	}

	logger.Info("order disputed",
		"event", "escrow_order_disputed",
		"module", application.ModuleName,
		"layer", "application",
		"order_id", order.OrderID,
		"contract_id", order.ContractID,
	)
	return order, nil
}
