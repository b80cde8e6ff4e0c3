package postgresadapter

import (
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"github.com/shopspring/decimal"
)

type contractModel struct {
	ContractID         string          `gorm:"column:contract_id;primaryKey"`
	MerchantID         string          `gorm:"column:merchant_id;index"`
	SKU                string          `gorm:"column:sku"`
	CommissionBPS      int32           `gorm:"column:commission_bps"`
	MinSecurityRateBPS int32           `gorm:"column:min_security_rate_bps"`
	VaultID            string          `gorm:"column:vault_id"`
	StakedShares       decimal.Decimal `gorm:"column:staked_shares;type:numeric(20,0)"`
	PlatformShareBPS   int32           `gorm:"column:platform_share_bps"`
	Version            int64           `gorm:"column:version"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at"`
}

func (contractModel) TableName() string {
	return "escrow_contracts"
}

func contractModelFromEntity(contract entities.Contract) contractModel {
	return contractModel{
		ContractID:         contract.ContractID,
		MerchantID:         contract.MerchantID,
		SKU:                contract.SKU,
		CommissionBPS:      int32(contract.CommissionBPS),
		MinSecurityRateBPS: int32(contract.MinSecurityRateBPS),
		VaultID:            contract.VaultID,
		StakedShares:       unitsToDecimal(contract.StakedShares),
		PlatformShareBPS:   int32(contract.PlatformShareBPS),
		Version:            contract.Version,
		CreatedAt:          contract.CreatedAt.UTC(),
		UpdatedAt:          contract.UpdatedAt.UTC(),
	}
}

func (m contractModel) toEntity() entities.Contract {
	return entities.Contract{
		ContractID:         m.ContractID,
		MerchantID:         m.MerchantID,
		SKU:                m.SKU,
		CommissionBPS:      uint32(m.CommissionBPS),
		MinSecurityRateBPS: uint32(m.MinSecurityRateBPS),
		VaultID:            m.VaultID,
		StakedShares:       decimalToUnits(m.StakedShares),
		PlatformShareBPS:   uint32(m.PlatformShareBPS),
		Version:            m.Version,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

type orderModel struct {
	OrderID       string          `gorm:"column:order_id;primaryKey"`
	ContractID    string          `gorm:"column:contract_id;index"`
	MerchantID    string          `gorm:"column:merchant_id"`
	DistributorID string          `gorm:"column:distributor_id;index"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,0)"`
	Commission    decimal.Decimal `gorm:"column:commission;type:numeric(20,0)"`
	Status        string          `gorm:"column:status;index:escrow_orders_status_deadline,priority:1"`
	Deadline      time.Time       `gorm:"column:deadline;index:escrow_orders_status_deadline,priority:2"`
	EvidenceHash  string          `gorm:"column:evidence_hash"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

func (orderModel) TableName() string {
	return "escrow_orders"
}

func orderModelFromEntity(order entities.Order) orderModel {
	return orderModel{
		OrderID:       order.OrderID,
		ContractID:    order.ContractID,
		MerchantID:    order.MerchantID,
		DistributorID: order.DistributorID,
		Amount:        unitsToDecimal(order.Amount),
		Commission:    unitsToDecimal(order.Commission),
		Status:        string(order.Status),
		Deadline:      order.Deadline.UTC(),
		EvidenceHash:  order.EvidenceHash,
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
}

func (m orderModel) toEntity() entities.Order {
	return entities.Order{
		OrderID:       m.OrderID,
		ContractID:    m.ContractID,
		MerchantID:    m.MerchantID,
		DistributorID: m.DistributorID,
		Amount:        decimalToUnits(m.Amount),
		Commission:    decimalToUnits(m.Commission),
		Status:        entities.OrderStatus(m.Status),
		Deadline:      m.Deadline.UTC(),
		EvidenceHash:  m.EvidenceHash,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type ticketModel struct {
	TicketID      string          `gorm:"column:ticket_id;primaryKey"`
	OrderID       string          `gorm:"column:order_id;uniqueIndex:escrow_tickets_order_unique"`
	ContractID    string          `gorm:"column:contract_id"`
	DistributorID string          `gorm:"column:distributor_id;index"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,0)"`
	Claimed       bool            `gorm:"column:claimed"`
	ClaimedAt     *time.Time      `gorm:"column:claimed_at"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
}

func (ticketModel) TableName() string {
	return "escrow_tickets"
}

func ticketModelFromEntity(ticket entities.Ticket) ticketModel {
	return ticketModel{
		TicketID:      ticket.TicketID,
		OrderID:       ticket.OrderID,
		ContractID:    ticket.ContractID,
		DistributorID: ticket.DistributorID,
		Amount:        unitsToDecimal(ticket.Amount),
		Claimed:       ticket.Claimed,
		ClaimedAt:     normalizeOptionalTime(ticket.ClaimedAt),
		CreatedAt:     ticket.CreatedAt.UTC(),
	}
}

func (m ticketModel) toEntity() entities.Ticket {
	return entities.Ticket{
		TicketID:      m.TicketID,
		OrderID:       m.OrderID,
		ContractID:    m.ContractID,
		DistributorID: m.DistributorID,
		Amount:        decimalToUnits(m.Amount),
		Claimed:       m.Claimed,
		ClaimedAt:     normalizeOptionalTime(m.ClaimedAt),
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

type payoutModel struct {
	PayoutID    string          `gorm:"column:payout_id;primaryKey"`
	ContractID  string          `gorm:"column:contract_id;index"`
	OrderID     string          `gorm:"column:order_id"`
	RecipientID string          `gorm:"column:recipient_id;index"`
	Reason      string          `gorm:"column:reason"`
	Shares      decimal.Decimal `gorm:"column:shares;type:numeric(20,0)"`
	VaultAssets decimal.Decimal `gorm:"column:vault_assets;type:numeric(20,0)"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(20,0)"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
}

func (payoutModel) TableName() string {
	return "escrow_payouts"
}

func payoutModelFromEntity(payout entities.Payout) payoutModel {
	return payoutModel{
		PayoutID:    payout.PayoutID,
		ContractID:  payout.ContractID,
		OrderID:     payout.OrderID,
		RecipientID: payout.RecipientID,
		Reason:      string(payout.Reason),
		Shares:      unitsToDecimal(payout.Shares),
		VaultAssets: unitsToDecimal(payout.VaultAssets),
		Amount:      unitsToDecimal(payout.Amount),
		CreatedAt:   payout.CreatedAt.UTC(),
	}
}

func (m payoutModel) toEntity() entities.Payout {
	return entities.Payout{
		PayoutID:    m.PayoutID,
		ContractID:  m.ContractID,
		OrderID:     m.OrderID,
		RecipientID: m.RecipientID,
		Reason:      entities.PayoutReason(m.Reason),
		Shares:      decimalToUnits(m.Shares),
		VaultAssets: decimalToUnits(m.VaultAssets),
		Amount:      decimalToUnits(m.Amount),
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type vaultPoolModel struct {
	VaultID     string          `gorm:"column:vault_id;primaryKey"`
	TotalAssets decimal.Decimal `gorm:"column:total_assets;type:numeric(20,0)"`
	TotalShares decimal.Decimal `gorm:"column:total_shares;type:numeric(20,0)"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

func (vaultPoolModel) TableName() string {
	return "escrow_vault_pools"
}

func vaultPoolModelFromEntity(pool entities.VaultPool) vaultPoolModel {
	return vaultPoolModel{
		VaultID:     pool.VaultID,
		TotalAssets: unitsToDecimal(pool.TotalAssets),
		TotalShares: unitsToDecimal(pool.TotalShares),
	}
}

func (m vaultPoolModel) toEntity() entities.VaultPool {
	return entities.VaultPool{
		VaultID:     m.VaultID,
		TotalAssets: decimalToUnits(m.TotalAssets),
		TotalShares: decimalToUnits(m.TotalShares),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "escrow_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}
