package commands

import (
	"context"
	"log/slog"
	"time"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type ConfirmOrderCommand struct {
	OrderID  string
	CallerID string
}

type ConfirmOrderResult struct {
	Order  entities.Order
	Ticket entities.Ticket
}

type ConfirmOrderUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute confirms a pending order and mints its only commission ticket in
// the same transaction.
func (u ConfirmOrderUseCase) Execute(ctx context.Context, cmd ConfirmOrderCommand) (result ConfirmOrderResult, err error) {
	defer func(started time.Time) { observe(u.Metrics, "confirm_order", started, err) }(time.Now())
	logger := application.ResolveLogger(u.Logger)

	ticketID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ConfirmOrderResult{}, err
	}
	now, err := currentTime(u.Clock)
	if err != nil {
		return ConfirmOrderResult{}, err
	}

	err = u.Repository.WithinTransaction(ctx, func(ctx context.Context, tx ports.Transaction) error {
		order, err := tx.GetOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := order.Confirm(cmd.CallerID, now); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, order, entities.OrderStatusPending); err != nil {
			return err
		}

		ticket, err := entities.NewTicket(ticketID, order, now)
		if err != nil {
			return err
		}
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, u.IDGenerator, orderConfirmedEventType, order.ContractID, now, map[string]any{
			"order_id":       order.OrderID,
			"contract_id":    order.ContractID,
			"ticket_id":      ticket.TicketID,
			"distributor_id": ticket.DistributorID,
			"amount":         ticket.Amount,
		}); err != nil {
			return err
		}
		result = ConfirmOrderResult{Order: order, Ticket: ticket}
		return nil
	})
	if err != nil {
		logger.Warn("confirm order failed",
			"event", "escrow_confirm_order_failed",
			"module", application.ModuleName,
			"layer", "application",
			"order_id", cmd.OrderID,
			"caller_id", cmd.CallerID,
			"error", err.Error(),
		)
		return ConfirmOrderResult{}, err
	}

	logger.Info("order confirmed",
		"event", "escrow_order_confirmed",
		"module", application.ModuleName,
		"layer", "application",
		"order_id", result.Order.OrderID,
		"ticket_id", result.Ticket.TicketID,
		"amount", result.Ticket.Amount,
	)
	return result, nil
}
