package entities

import (
	"strings"
	"time"

	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDisputed  OrderStatus = "disputed"
	OrderStatusSlashed   OrderStatus = "slashed"
)

// DefaultGracePeriod is the window after order creation during which an
// order cannot be slashed.
const DefaultGracePeriod = 72 * time.Hour

type Order struct {
	OrderID       string
	ContractID    string
	MerchantID    string
	DistributorID string
	Amount        uint64
	Commission    uint64
	Status        OrderStatus
	Deadline      time.Time
	EvidenceHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrder opens a pending order against contract. Commission is fixed here
// and never recomputed.
func NewOrder(
	orderID string,
	contract Contract,
	distributorID string,
	amount uint64,
	evidenceHash string,
	now time.Time,
	gracePeriod time.Duration,
) (Order, error) {
	distributorID = strings.TrimSpace(distributorID)
	if strings.TrimSpace(orderID) == "" || distributorID == "" || amount == 0 {
		return Order{}, domainerrors.ErrInvalidOrder
	}
	if distributorID == contract.MerchantID {
		return Order{}, domainerrors.ErrNotDistributor
	}
	commission, err := contract.CommissionFor(amount)
	if err != nil {
		return Order{}, err
	}
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}

	return Order{
		OrderID:       orderID,
		ContractID:    contract.ContractID,
		MerchantID:    contract.MerchantID,
		DistributorID: distributorID,
		Amount:        amount,
		Commission:    commission,
		Status:        OrderStatusPending,
		Deadline:      now.UTC().Add(gracePeriod),
		EvidenceHash:  evidenceHash,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}, nil
}

func (o *Order) Confirm(callerID string, now time.Time) error {
	if callerID != o.MerchantID {
		return domainerrors.ErrNotMerchant
	}
	if o.Status != OrderStatusPending {
		return domainerrors.ErrOrderNotPending
	}
	o.Status = OrderStatusConfirmed
	o.UpdatedAt = now.UTC()
	return nil
}

func (o *Order) Dispute(callerID string, now time.Time) error {
	if callerID != o.MerchantID {
		return domainerrors.ErrNotMerchant
	}
	switch o.Status {
	case OrderStatusPending:
	case OrderStatusDisputed:
		return domainerrors.ErrAlreadyDisputed
	default:
		return domainerrors.ErrOrderNotPending
	}
	o.Status = OrderStatusDisputed
	o.UpdatedAt = now.UTC()
	return nil
}

// Slash is permissionless. It requires an unresolved order strictly past its deadline.
func (o *Order) Slash(now time.Time) error {
	if !o.Slashable() {
		return domainerrors.ErrOrderNotPending
	}
	if !now.UTC().After(o.Deadline) {
		return domainerrors.ErrDeadlineNotReached
	}
	o.Status = OrderStatusSlashed
	o.UpdatedAt = now.UTC()
	return nil
}

func (o Order) Slashable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusDisputed
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDisputed, OrderStatusSlashed:
		return true
	default:
		return false
	}
}
