package ports

import (
	"context"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	contractsv1 "commissionvault/contracts/gen/events/v1"
)

// Transaction is the write surface available inside Repository.WithinTransaction.
// Every Get locks the row it returns until the transaction ends, and every
// Update is conditional so a lost race surfaces as an error, never a silent overwrite.
type Transaction interface {
	GetContract(ctx context.Context, contractID string) (entities.Contract, error)
	CreateContract(ctx context.Context, contract entities.Contract) error
	// UpdateContract persists contract if its stored version still equals
	// contract.Version, then bumps the version.
	UpdateContract(ctx context.Context, contract entities.Contract) (entities.Contract, error)

	GetOrder(ctx context.Context, orderID string) (entities.Order, error)
	CreateOrder(ctx context.Context, order entities.Order) error
	// UpdateOrder persists order only if the stored status equals expected.
	UpdateOrder(ctx context.Context, order entities.Order, expected entities.OrderStatus) error

	GetTicket(ctx context.Context, ticketID string) (entities.Ticket, error)
	// CreateTicket fails with ErrTicketAlreadyIssued if the order already has one.
	CreateTicket(ctx context.Context, ticket entities.Ticket) error
	// MarkTicketClaimed flips claimed only while it is still false.
	MarkTicketClaimed(ctx context.Context, ticketID string, claimedAt time.Time) error

	CreatePayout(ctx context.Context, payout entities.Payout) error
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// Repository owns transaction boundaries and the read side of the escrow state.
type Repository interface {
	// WithinTransaction runs fn serialized against every other transaction
	// touching the same records. Any error from fn rolls everything back.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error

	GetContract(ctx context.Context, contractID string) (entities.Contract, error)
	// ListContracts returns up to limit contracts ordered by creation time
	// and id, starting strictly after the cursor.
	ListContracts(ctx context.Context, after ContractCursor, limit int) ([]entities.Contract, error)
	GetOrder(ctx context.Context, orderID string) (entities.Order, error)
	// ListSlashableOrders returns pending or disputed orders whose deadline is before now.
	ListSlashableOrders(ctx context.Context, now time.Time, limit int) ([]entities.Order, error)
	GetTicket(ctx context.Context, ticketID string) (entities.Ticket, error)
	ListTicketsByDistributor(ctx context.Context, distributorID string) ([]entities.Ticket, error)
	ListPayoutsByRecipient(ctx context.Context, recipientID string) ([]entities.Payout, error)
}

// ContractCursor positions a ListContracts page. The zero value starts at
// the oldest contract.
type ContractCursor struct {
	CreatedAt  time.Time
	ContractID string
}

// CursorAfter returns the cursor that resumes listing after contract.
func CursorAfter(contract entities.Contract) ContractCursor {
	return ContractCursor{CreatedAt: contract.CreatedAt, ContractID: contract.ContractID}
}

func (c ContractCursor) IsZero() bool {
	return c.ContractID == "" && c.CreatedAt.IsZero()
}

// Admits reports whether contract sorts strictly after the cursor.
func (c ContractCursor) Admits(contract entities.Contract) bool {
	if c.IsZero() {
		return true
	}
	if contract.CreatedAt.Equal(c.CreatedAt) {
		return contract.ContractID > c.ContractID
	}
	return contract.CreatedAt.After(c.CreatedAt)
}

// YieldVault is the pooled yield instrument backing contract stakes.
// Redeem must fail rather than truncate when the vault cannot cover shares.
type YieldVault interface {
	Deposit(ctx context.Context, vaultID string, assets uint64) (uint64, error)
	Redeem(ctx context.Context, vaultID string, shares uint64) (uint64, error)
	PreviewRedeem(ctx context.Context, vaultID string, shares uint64) (uint64, error)
}

// VaultLedger is a YieldVault whose pool totals this service records.
// Implementations backed by the escrow store join the caller's
// WithinTransaction when ctx carries one.
type VaultLedger interface {
	YieldVault
	// Accrue adds realized yield to a pool without minting shares.
	Accrue(ctx context.Context, vaultID string, assets uint64) (entities.VaultPool, error)
	// GetPool returns the pool totals; an unknown vault is an empty pool.
	GetPool(ctx context.Context, vaultID string) (entities.VaultPool, error)
}

// SettlementConverter moves value between the settlement currency paid to
// users and the vault's native asset. Failures are hard errors.
type SettlementConverter interface {
	ToVaultAsset(ctx context.Context, amount uint64) (uint64, error)
	ToSettlement(ctx context.Context, assets uint64) (uint64, error)
}

// Clock is the only time source for deadlines. clockwork.Clock satisfies it.
type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Metrics receives operation outcomes and payout volume.
type Metrics interface {
	ObserveOperation(operation string, outcome string, elapsed time.Duration)
	ObservePayout(reason string, amount uint64)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber delivers envelopes published on topic to handler until ctx
// is done.
type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error)
}
