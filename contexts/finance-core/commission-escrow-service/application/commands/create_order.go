package commands

import (
	"context"
	"log/slog"
	"time"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type CreateOrderCommand struct {
	ContractID    string
	DistributorID string
	Amount        uint64
	EvidenceHash  string
}

type CreateOrderUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	GracePeriod time.Duration
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (u CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderCommand) (order entities.Order, err error) {
	defer func(started time.Time) { observe(u.Metrics, "create_order", started, err) }(time.Now())
	logger := application.ResolveLogger(u.Logger)

	orderID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Order{}, err
	}
	now, err := currentTime(u.Clock)
	if err != nil {
		return entities.Order{}, err
	}

	err = u.Repository.WithinTransaction(ctx, func(ctx context.Context, tx ports.Transaction) error {
		contract, err := tx.GetContract(ctx, cmd.ContractID)
		if err != nil {
			return err
		}
		created, err := entities.NewOrder(orderID, contract, cmd.DistributorID, cmd.Amount, cmd.EvidenceHash, now, u.gracePeriod())
		if err != nil {
			return err
		}
		if err := tx.CreateOrder(ctx, created); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, u.IDGenerator, orderCreatedEventType, created.ContractID, now, map[string]any{
			"order_id":       created.OrderID,
			"contract_id":    created.ContractID,
			"distributor_id": created.DistributorID,
			"amount":         created.Amount,
			"commission":     created.Commission,
			"deadline":       created.Deadline,
		}); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		logger.Warn("create order failed",
			"event", "escrow_create_order_failed",
			"module", application.ModuleName,
			"layer", "application",
			"contract_id", cmd.ContractID,
			"distributor_id", cmd.DistributorID,
			"error", err.Error(),
		)
		return entities.Order{}, err
	}

	logger.Info("order created",
		"event", "escrow_order_created",
		"module", application.ModuleName,
		"layer", "application",
		"order_id", order.OrderID,
		"contract_id", order.ContractID,
		"distributor_id", order.DistributorID,
		"commission", order.Commission,
	)
	return order, nil
}

func (u CreateOrderUseCase) gracePeriod() time.Duration {
	if u.GracePeriod <= 0 {
		return entities.DefaultGracePeriod
	}
	return u.GracePeriod
}
