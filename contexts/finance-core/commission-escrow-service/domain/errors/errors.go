package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotMerchant      = errors.New("caller is not the contract merchant")
	ErrNotDistributor   = errors.New("caller is not an eligible distributor")
	ErrNotVaultOperator = errors.New("caller is not the vault operator")

	ErrOrderNotPending     = errors.New("order is not pending")
	ErrOrderNotConfirmed   = errors.New("order is not confirmed")
	ErrAlreadyClaimed      = errors.New("commission ticket already claimed")
	ErrTicketAlreadyIssued = errors.New("commission ticket already issued for order")
	// ErrAlreadyDisputed still matches ErrOrderNotPending via errors.Is.
	ErrAlreadyDisputed = fmt.Errorf("%w: order already disputed", ErrOrderNotPending)

	ErrShareTooHigh      = errors.New("platform share exceeds 10000 basis points")
	ErrCommissionTooHigh = errors.New("commission rate exceeds 10000 basis points")
	ErrInvalidDeposit    = errors.New("deposit must be positive")
	ErrInvalidContract   = errors.New("invalid distribution contract")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidYield      = errors.New("yield must be positive")

	ErrDeadlineNotReached = errors.New("order deadline not reached")

	ErrInsufficientStake          = errors.New("insufficient staked balance")
	ErrVaultInsufficientLiquidity = errors.New("vault cannot cover redemption")
	ErrConversionFailed           = errors.New("settlement conversion failed")
	ErrAmountOverflow             = errors.New("amount overflows uint64")

	ErrContractNotFound = errors.New("distribution contract not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrTicketNotFound   = errors.New("commission ticket not found")

	ErrConcurrentUpdate         = errors.New("record modified concurrently")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)
