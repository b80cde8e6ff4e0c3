package entities

import "time"

type PayoutReason string

const (
	PayoutReasonCommission        PayoutReason = "commission"
	PayoutReasonMerchantYield     PayoutReason = "merchant_yield"
	PayoutReasonPlatformYield     PayoutReason = "platform_yield"
	PayoutReasonSlashCompensation PayoutReason = "slash_compensation"
)

// Payout records one transfer out of a contract's stake: the shares
// withdrawn, what the vault returned for them, and the settlement amount paid.
type Payout struct {
	PayoutID    string
	ContractID  string
	OrderID     string
	RecipientID string
	Reason      PayoutReason
	Shares      uint64
	VaultAssets uint64
	Amount      uint64
	CreatedAt   time.Time
}

// SlashPolicy decides what happens to the at-risk stake when an order is slashed.
type SlashPolicy string

const (
	// SlashPolicyRetain only flips status; the stake stays in the contract.
	SlashPolicyRetain SlashPolicy = "retain"
	// SlashPolicyCompensateDistributor pays the order's commission to its
	// distributor out of the stake.
	SlashPolicyCompensateDistributor SlashPolicy = "compensate_distributor"
)

func (p SlashPolicy) Valid() bool {
	return p == SlashPolicyRetain || p == SlashPolicyCompensateDistributor
}
