package entities

import (
	"testing"

	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"

	"github.com/stretchr/testify/require"
)

func TestValidateTermsBounds(t *testing.T) {
	terms := ContractTerms{MerchantID: "m", SKU: "s", VaultID: "v", CommissionBPS: 10_000, PlatformShareBPS: 10_000}
	require.NoError(t, ValidateTerms(terms))

	terms.PlatformShareBPS = 10_001
	require.ErrorIs(t, ValidateTerms(terms), domainerrors.ErrShareTooHigh)

	terms.PlatformShareBPS = 0
	terms.CommissionBPS = 10_001
	require.ErrorIs(t, ValidateTerms(terms), domainerrors.ErrCommissionTooHigh)

	terms.CommissionBPS = 0
	terms.VaultID = " "
	require.ErrorIs(t, ValidateTerms(terms), domainerrors.ErrInvalidContract)
}

func TestMinSecurityRateIsCarriedButNotEnforced(t *testing.T) {
	contract, err := NewContract("c", ContractTerms{
		MerchantID:         "m",
		SKU:                "s",
		VaultID:            "v",
		MinSecurityRateBPS: 60_000,
	}, 1, baseTime)
	require.NoError(t, err)
	require.Equal(t, uint32(60_000), contract.MinSecurityRateBPS)

	require.NoError(t, contract.Withdraw(1, baseTime))
}

func TestWithdrawIsAllOrNothing(t *testing.T) {
	contract := testContract(t)
	require.ErrorIs(t, contract.Withdraw(10_001, baseTime), domainerrors.ErrInsufficientStake)
	require.Equal(t, uint64(10_000), contract.StakedShares)

	require.NoError(t, contract.Withdraw(10_000, baseTime))
	require.Equal(t, uint64(0), contract.StakedShares)
}

func TestTicketClaimFlipsOnce(t *testing.T) {
	order := testOrder(t)
	_, err := NewTicket("ticket-1", order, baseTime)
	require.ErrorIs(t, err, domainerrors.ErrOrderNotConfirmed)

	require.NoError(t, order.Confirm("merchant-1", baseTime))
	ticket, err := NewTicket("ticket-1", order, baseTime)
	require.NoError(t, err)
	require.Equal(t, order.Commission, ticket.Amount)
	require.False(t, ticket.Claimed)

	require.NoError(t, ticket.Claim(baseTime))
	require.True(t, ticket.Claimed)
	require.NotNil(t, ticket.ClaimedAt)
	require.ErrorIs(t, ticket.Claim(baseTime), domainerrors.ErrAlreadyClaimed)
}
