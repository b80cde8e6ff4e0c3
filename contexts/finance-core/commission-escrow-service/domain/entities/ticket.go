package entities

import (
	"strings"
	"time"

	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
)

// Ticket is the single redeemable proof that an order was confirmed.
type Ticket struct {
	TicketID      string
	OrderID       string
	ContractID    string
	DistributorID string
	Amount        uint64
	Claimed       bool
	ClaimedAt     *time.Time
	CreatedAt     time.Time
}

func NewTicket(ticketID string, order Order, now time.Time) (Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return Ticket{}, domainerrors.ErrRepositoryInvariantBroke
	}
	if order.Status != OrderStatusConfirmed {
		return Ticket{}, domainerrors.ErrOrderNotConfirmed
	}
	return Ticket{
		TicketID:      ticketID,
		OrderID:       order.OrderID,
		ContractID:    order.ContractID,
		DistributorID: order.DistributorID,
		Amount:        order.Commission,
		CreatedAt:     now.UTC(),
	}, nil
}

// Claim flips Claimed exactly once. Callers must already have checked
// ownership and order state so the error order stays stable.
func (t *Ticket) Claim(now time.Time) error {
	if t.Claimed {
		return domainerrors.ErrAlreadyClaimed
	}
	claimedAt := now.UTC()
	t.Claimed = true
	t.ClaimedAt = &claimedAt
	return nil
}
