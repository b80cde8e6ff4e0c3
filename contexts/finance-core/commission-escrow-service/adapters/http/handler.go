package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/application/commands"
	"commissionvault/contexts/finance-core/commission-escrow-service/application/queries"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/services"
	httptransport "commissionvault/contexts/finance-core/commission-escrow-service/transport/http"
)

type Handler struct {
	PublishAndStake commands.PublishAndStakeUseCase
	CreateOrder     commands.CreateOrderUseCase
	ConfirmOrder    commands.ConfirmOrderUseCase
	DisputeOrder    commands.DisputeOrderUseCase
	SlashOrder      commands.SlashOrderUseCase
	ClaimCommission commands.ClaimCommissionUseCase
	HarvestInterest commands.HarvestInterestUseCase
	RecordYield     commands.RecordVaultYieldUseCase

	GetContract    queries.GetContractUseCase
	GetOrder       queries.GetOrderUseCase
	GetTicket      queries.GetTicketUseCase
	ListTickets    queries.ListTicketsUseCase
	ListPayouts    queries.ListPayoutsUseCase
	PreviewHarvest queries.PreviewHarvestUseCase
	GetVaultPool   queries.GetVaultPoolUseCase

	Logger *slog.Logger
}

func (h Handler) PublishContractHandler(
	ctx context.Context,
	merchantID string,
	req httptransport.PublishContractRequest,
) (httptransport.PublishContractResponse, error) {
	result, err := h.PublishAndStake.Execute(ctx, commands.PublishAndStakeCommand{
		MerchantID:         merchantID,
		SKU:                req.SKU,
		CommissionBPS:      req.CommissionBPS,
		MinSecurityRateBPS: req.MinSecurityRateBPS,
		PlatformShareBPS:   req.PlatformShareBPS,
		VaultID:            req.VaultID,
		Deposit:            req.Deposit,
	})
	if err != nil {
		return httptransport.PublishContractResponse{}, err
	}
	resp := httptransport.PublishContractResponse{Status: "success"}
	resp.Data.Contract = toContractDTO(result.Contract)
	resp.Data.VaultAssets = result.VaultAssets
	return resp, nil
}

func (h Handler) GetContractHandler(ctx context.Context, contractID string) (httptransport.ContractResponse, error) {
	contract, err := h.GetContract.Execute(ctx, contractID)
	if err != nil {
		return httptransport.ContractResponse{}, err
	}
	return httptransport.ContractResponse{Status: "success", Data: toContractDTO(contract)}, nil
}

func (h Handler) CreateOrderHandler(
	ctx context.Context,
	distributorID string,
	contractID string,
	req httptransport.CreateOrderRequest,
) (httptransport.OrderResponse, error) {
	order, err := h.CreateOrder.Execute(ctx, commands.CreateOrderCommand{
		ContractID:    contractID,
		DistributorID: distributorID,
		Amount:        req.Amount,
		EvidenceHash:  req.EvidenceHash,
	})
	if err != nil {
		return httptransport.OrderResponse{}, err
	}
	return httptransport.OrderResponse{Status: "success", Data: toOrderDTO(order)}, nil
}

func (h Handler) GetOrderHandler(ctx context.Context, orderID string) (httptransport.OrderResponse, error) {
	order, err := h.GetOrder.Execute(ctx, orderID)
	if err != nil {
		return httptransport.OrderResponse{}, err
	}
	return httptransport.OrderResponse{Status: "success", Data: toOrderDTO(order)}, nil
}

func (h Handler) ConfirmOrderHandler(
	ctx context.Context,
	callerID string,
	orderID string,
) (httptransport.ConfirmOrderResponse, error) {
	result, err := h.ConfirmOrder.Execute(ctx, commands.ConfirmOrderCommand{OrderID: orderID, CallerID: callerID})
	if err != nil {
		return httptransport.ConfirmOrderResponse{}, err
	}
	resp := httptransport.ConfirmOrderResponse{Status: "success"}
	resp.Data.Order = toOrderDTO(result.Order)
	resp.Data.Ticket = toTicketDTO(result.Ticket)
	return resp, nil
}

func (h Handler) DisputeOrderHandler(
	ctx context.Context,
	callerID string,
	orderID string,
) (httptransport.OrderResponse, error) {
	order, err := h.DisputeOrder.Execute(ctx, commands.DisputeOrderCommand{OrderID: orderID, CallerID: callerID})
	if err != nil {
		return httptransport.OrderResponse{}, err
	}
	return httptransport.OrderResponse{Status: "success", Data: toOrderDTO(order)}, nil
}

func (h Handler) SlashOrderHandler(
	ctx context.Context,
	callerID string,
	orderID string,
) (httptransport.SlashOrderResponse, error) {
	result, err := h.SlashOrder.Execute(ctx, commands.SlashOrderCommand{OrderID: orderID, CallerID: callerID})
	if err != nil {
		return httptransport.SlashOrderResponse{}, err
	}
	resp := httptransport.SlashOrderResponse{Status: "success"}
	resp.Data.Order = toOrderDTO(result.Order)
	if result.Compensation != nil {
		payout := toPayoutDTO(*result.Compensation)
		resp.Data.Compensation = &payout
	}
	return resp, nil
}

func (h Handler) GetTicketHandler(
	ctx context.Context,
	callerID string,
	ticketID string,
) (httptransport.TicketResponse, error) {
	ticket, err := h.GetTicket.Execute(ctx, callerID, ticketID)
	if err != nil {
		return httptransport.TicketResponse{}, err
	}
	return httptransport.TicketResponse{Status: "success", Data: toTicketDTO(ticket)}, nil
}

func (h Handler) ListTicketsHandler(ctx context.Context, distributorID string) (httptransport.TicketListResponse, error) {
	items, err := h.ListTickets.Execute(ctx, distributorID)
	if err != nil {
		return httptransport.TicketListResponse{}, err
	}
	resp := httptransport.TicketListResponse{
		Status: "success",
		Data:   make([]httptransport.TicketDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, toTicketDTO(item))
	}
	return resp, nil
}

func (h Handler) ClaimCommissionHandler(
	ctx context.Context,
	callerID string,
	ticketID string,
) (httptransport.ClaimCommissionResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	result, err := h.ClaimCommission.Execute(ctx, commands.ClaimCommissionCommand{TicketID: ticketID, CallerID: callerID})
	if err != nil {
		logger.Warn("claim commission request rejected",
			"event", "http_claim_commission_rejected",
			"module", application.ModuleName,
			"layer", "transport",
			"ticket_id", ticketID,
			"error", err.Error(),
		)
		return httptransport.ClaimCommissionResponse{}, err
	}
	resp := httptransport.ClaimCommissionResponse{Status: "success"}
	resp.Data.Ticket = toTicketDTO(result.Ticket)
	resp.Data.Payout = toPayoutDTO(result.Payout)
	resp.Data.StakedShares = result.Contract.StakedShares
	return resp, nil
}

func (h Handler) HarvestInterestHandler(
	ctx context.Context,
	callerID string,
	contractID string,
) (httptransport.HarvestResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	result, err := h.HarvestInterest.Execute(ctx, commands.HarvestInterestCommand{ContractID: contractID, CallerID: callerID})
	if err != nil {
		logger.Warn("harvest request rejected",
			"event", "http_harvest_interest_rejected",
			"module", application.ModuleName,
			"layer", "transport",
			"contract_id", contractID,
			"error", err.Error(),
		)
		return httptransport.HarvestResponse{}, err
	}
	resp := httptransport.HarvestResponse{Status: "success"}
	resp.Data.ContractID = result.Contract.ContractID
	resp.Data.Harvested = !result.NoOp
	resp.Data.Split = toSplitDTO(result.Split)
	resp.Data.StakedShares = result.Contract.StakedShares
	resp.Data.Payouts = make([]httptransport.PayoutDTO, 0, len(result.Payouts))
	for _, payout := range result.Payouts {
		resp.Data.Payouts = append(resp.Data.Payouts, toPayoutDTO(payout))
	}
	return resp, nil
}

func (h Handler) PreviewHarvestHandler(ctx context.Context, contractID string) (httptransport.HarvestPreviewResponse, error) {
	preview, err := h.PreviewHarvest.Execute(ctx, contractID)
	if err != nil {
		return httptransport.HarvestPreviewResponse{}, err
	}
	resp := httptransport.HarvestPreviewResponse{Status: "success"}
	resp.Data.ContractID = preview.ContractID
	resp.Data.StakedShares = preview.StakedShares
	resp.Data.PreviewAssets = preview.PreviewAssets
	resp.Data.Split = toSplitDTO(preview.Split)
	return resp, nil
}

func (h Handler) RecordVaultYieldHandler(
	ctx context.Context,
	callerID string,
	vaultID string,
	req httptransport.RecordVaultYieldRequest,
) (httptransport.VaultPoolResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	pool, err := h.RecordYield.Execute(ctx, commands.RecordVaultYieldCommand{
		VaultID:  vaultID,
		CallerID: callerID,
		Assets:   req.Assets,
	})
	if err != nil {
		logger.Warn("record vault yield request rejected",
			"event", "http_record_vault_yield_rejected",
			"module", application.ModuleName,
			"layer", "transport",
			"vault_id", vaultID,
			"error", err.Error(),
		)
		return httptransport.VaultPoolResponse{}, err
	}
	return httptransport.VaultPoolResponse{Status: "success", Data: toVaultPoolDTO(pool)}, nil
}

func (h Handler) GetVaultPoolHandler(ctx context.Context, vaultID string) (httptransport.VaultPoolResponse, error) {
	pool, err := h.GetVaultPool.Execute(ctx, vaultID)
	if err != nil {
		return httptransport.VaultPoolResponse{}, err
	}
	return httptransport.VaultPoolResponse{Status: "success", Data: toVaultPoolDTO(pool)}, nil
}

func (h Handler) ListPayoutsHandler(ctx context.Context, recipientID string) (httptransport.PayoutListResponse, error) {
	items, err := h.ListPayouts.Execute(ctx, recipientID)
	if err != nil {
		return httptransport.PayoutListResponse{}, err
	}
	resp := httptransport.PayoutListResponse{
		Status: "success",
		Data:   make([]httptransport.PayoutDTO, 0, len(items)),
	}
	for _, item := range items {
		resp.Data = append(resp.Data, toPayoutDTO(item))
	}
	return resp, nil
}

func toContractDTO(contract entities.Contract) httptransport.ContractDTO {
	return httptransport.ContractDTO{
		ContractID:         contract.ContractID,
		MerchantID:         contract.MerchantID,
		SKU:                contract.SKU,
		CommissionBPS:      contract.CommissionBPS,
		MinSecurityRateBPS: contract.MinSecurityRateBPS,
		PlatformShareBPS:   contract.PlatformShareBPS,
		VaultID:            contract.VaultID,
		StakedShares:       contract.StakedShares,
		Version:            contract.Version,
		CreatedAt:          contract.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          contract.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toOrderDTO(order entities.Order) httptransport.OrderDTO {
	return httptransport.OrderDTO{
		OrderID:       order.OrderID,
		ContractID:    order.ContractID,
		MerchantID:    order.MerchantID,
		DistributorID: order.DistributorID,
		Amount:        order.Amount,
		Commission:    order.Commission,
		Status:        string(order.Status),
		Deadline:      order.Deadline.UTC().Format(time.RFC3339),
		EvidenceHash:  order.EvidenceHash,
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     order.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTicketDTO(ticket entities.Ticket) httptransport.TicketDTO {
	dto := httptransport.TicketDTO{
		TicketID:      ticket.TicketID,
		OrderID:       ticket.OrderID,
		ContractID:    ticket.ContractID,
		DistributorID: ticket.DistributorID,
		Amount:        ticket.Amount,
		Claimed:       ticket.Claimed,
		CreatedAt:     ticket.CreatedAt.UTC().Format(time.RFC3339),
	}
	if ticket.ClaimedAt != nil {
		dto.ClaimedAt = ticket.ClaimedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toPayoutDTO(payout entities.Payout) httptransport.PayoutDTO {
	return httptransport.PayoutDTO{
		PayoutID:    payout.PayoutID,
		ContractID:  payout.ContractID,
		OrderID:     payout.OrderID,
		RecipientID: payout.RecipientID,
		Reason:      string(payout.Reason),
		Shares:      payout.Shares,
		VaultAssets: payout.VaultAssets,
		Amount:      payout.Amount,
		CreatedAt:   payout.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toSplitDTO(split services.YieldSplit) httptransport.YieldSplitDTO {
	return httptransport.YieldSplitDTO{
		Interest:      split.Interest,
		PlatformShare: split.PlatformShare,
		MerchantShare: split.MerchantShare,
	}
}

func toVaultPoolDTO(pool entities.VaultPool) httptransport.VaultPoolDTO {
	return httptransport.VaultPoolDTO{
		VaultID:     pool.VaultID,
		TotalAssets: pool.TotalAssets,
		TotalShares: pool.TotalShares,
	}
}
