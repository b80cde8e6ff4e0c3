package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PublishContractRequest struct {
	SKU                string `json:"sku"`
	CommissionBPS      uint32 `json:"commission_bps"`
	MinSecurityRateBPS uint32 `json:"min_security_rate_bps"`
	PlatformShareBPS   uint32 `json:"platform_share_bps"`
	VaultID            string `json:"vault_id"`
	Deposit            uint64 `json:"deposit"`
}

type ContractDTO struct {
	ContractID         string `json:"contract_id"`
	MerchantID         string `json:"merchant_id"`
	SKU                string `json:"sku"`
	CommissionBPS      uint32 `json:"commission_bps"`
	MinSecurityRateBPS uint32 `json:"min_security_rate_bps"`
	PlatformShareBPS   uint32 `json:"platform_share_bps"`
	VaultID            string `json:"vault_id"`
	StakedShares       uint64 `json:"staked_shares"`
	Version            int64  `json:"version"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

type PublishContractResponse struct {
	Status string `json:"status"`
	Data   struct {
		Contract    ContractDTO `json:"contract"`
		VaultAssets uint64      `json:"vault_assets"`
	} `json:"data"`
}

type ContractResponse struct {
	Status string      `json:"status"`
	Data   ContractDTO `json:"data"`
}

type CreateOrderRequest struct {
	Amount       uint64 `json:"amount"`
	EvidenceHash string `json:"evidence_hash"`
}

type OrderDTO struct {
	OrderID       string `json:"order_id"`
	ContractID    string `json:"contract_id"`
	MerchantID    string `json:"merchant_id"`
	DistributorID string `json:"distributor_id"`
	Amount        uint64 `json:"amount"`
	Commission    uint64 `json:"commission"`
	Status        string `json:"status"`
	Deadline      string `json:"deadline"`
	EvidenceHash  string `json:"evidence_hash,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type OrderResponse struct {
	Status string   `json:"status"`
	Data   OrderDTO `json:"data"`
}

type TicketDTO struct {
	TicketID      string `json:"ticket_id"`
	OrderID       string `json:"order_id"`
	ContractID    string `json:"contract_id"`
	DistributorID string `json:"distributor_id"`
	Amount        uint64 `json:"amount"`
	Claimed       bool   `json:"claimed"`
	ClaimedAt     string `json:"claimed_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type ConfirmOrderResponse struct {
	Status string `json:"status"`
	Data   struct {
		Order  OrderDTO  `json:"order"`
		Ticket TicketDTO `json:"ticket"`
	} `json:"data"`
}

type PayoutDTO struct {
	PayoutID    string `json:"payout_id"`
	ContractID  string `json:"contract_id"`
	OrderID     string `json:"order_id,omitempty"`
	RecipientID string `json:"recipient_id"`
	Reason      string `json:"reason"`
	Shares      uint64 `json:"shares"`
	VaultAssets uint64 `json:"vault_assets"`
	Amount      uint64 `json:"amount"`
	CreatedAt   string `json:"created_at"`
}

type SlashOrderResponse struct {
	Status string `json:"status"`
	Data   struct {
		Order        OrderDTO   `json:"order"`
		Compensation *PayoutDTO `json:"compensation,omitempty"`
	} `json:"data"`
}

type TicketResponse struct {
	Status string    `json:"status"`
	Data   TicketDTO `json:"data"`
}

type TicketListResponse struct {
	Status string      `json:"status"`
	Data   []TicketDTO `json:"data"`
}

type ClaimCommissionResponse struct {
	Status string `json:"status"`
	Data   struct {
		Ticket       TicketDTO `json:"ticket"`
		Payout       PayoutDTO `json:"payout"`
		StakedShares uint64    `json:"staked_shares"`
	} `json:"data"`
}

type YieldSplitDTO struct {
	Interest      uint64 `json:"interest"`
	PlatformShare uint64 `json:"platform_share"`
	MerchantShare uint64 `json:"merchant_share"`
}

type HarvestResponse struct {
	Status string `json:"status"`
	Data   struct {
		ContractID   string        `json:"contract_id"`
		Harvested    bool          `json:"harvested"`
		Split        YieldSplitDTO `json:"split"`
		Payouts      []PayoutDTO   `json:"payouts"`
		StakedShares uint64        `json:"staked_shares"`
	} `json:"data"`
}

type HarvestPreviewResponse struct {
	Status string `json:"status"`
	Data   struct {
		ContractID    string        `json:"contract_id"`
		StakedShares  uint64        `json:"staked_shares"`
		PreviewAssets uint64        `json:"preview_assets"`
		Split         YieldSplitDTO `json:"split"`
	} `json:"data"`
}

type RecordVaultYieldRequest struct {
	Assets uint64 `json:"assets"`
}

type VaultPoolDTO struct {
	VaultID     string `json:"vault_id"`
	TotalAssets uint64 `json:"total_assets"`
	TotalShares uint64 `json:"total_shares"`
}

type VaultPoolResponse struct {
	Status string       `json:"status"`
	Data   VaultPoolDTO `json:"data"`
}

type PayoutListResponse struct {
	Status string      `json:"status"`
	Data   []PayoutDTO `json:"data"`
}
