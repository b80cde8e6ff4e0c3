package queries

import (
	"context"
	"log/slog"
	"strings"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type GetContractUseCase struct {
	Repository ports.Repository
	Logger     *slog.Logger
}

func (u GetContractUseCase) Execute(ctx context.Context, contractID string) (entities.Contract, error) {
	if strings.TrimSpace(contractID) == "" {
		return entities.Contract{}, domainerrors.ErrContractNotFound
	}
	contract, err := u.Repository.GetContract(ctx, contractID)
	if err != nil {
		application.ResolveLogger(u.Logger).Debug("get contract failed",
			"event", "escrow_get_contract_failed",
			"module", application.ModuleName,
			"layer", "application",
			"contract_id", contractID,
			"error", err.Error(),
		)
		return entities.Contract{}, err
	}
	return contract, nil
}

type GetOrderUseCase struct {
	Repository ports.Repository
}

func (u GetOrderUseCase) Execute(ctx context.Context, orderID string) (entities.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return entities.Order{}, domainerrors.ErrOrderNotFound
	}
	return u.Repository.GetOrder(ctx, orderID)
}

type GetTicketUseCase struct {
	Repository ports.Repository
}

// Execute only returns tickets owned by callerID; other tickets read as not found.
func (u GetTicketUseCase) Execute(ctx context.Context, callerID string, ticketID string) (entities.Ticket, error) {
	ticket, err := u.Repository.GetTicket(ctx, ticketID)
	if err != nil {
		return entities.Ticket{}, err
	}
	if ticket.DistributorID != callerID {
		return entities.Ticket{}, domainerrors.ErrTicketNotFound
	}
	return ticket, nil
}

type ListTicketsUseCase struct {
	Repository ports.Repository
}

func (u ListTicketsUseCase) Execute(ctx context.Context, distributorID string) ([]entities.Ticket, error) {
	return u.Repository.ListTicketsByDistributor(ctx, distributorID)
}

type ListPayoutsUseCase struct {
	Repository ports.Repository
}

func (u ListPayoutsUseCase) Execute(ctx context.Context, recipientID string) ([]entities.Payout, error) {
	return u.Repository.ListPayoutsByRecipient(ctx, recipientID)
}
