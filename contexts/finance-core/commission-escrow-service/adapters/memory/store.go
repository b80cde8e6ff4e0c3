package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

// Store keeps escrow state in process. Transactions are serialized by txMu
// and stage their writes until fn returns nil.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	contracts      map[string]entities.Contract
	orders         map[string]entities.Order
	tickets        map[string]entities.Ticket
	ticketsByOrder map[string]string
	payouts        map[string]entities.Payout
	outbox         map[string]outboxRecord
	outboxOrder    []string

	sequence atomic.Uint64
}

type outboxRecord struct {
	Message ports.OutboxMessage
	SentAt  *time.Time
}

var (
	_ ports.Repository       = (*Store)(nil)
	_ ports.OutboxRepository = (*Store)(nil)
	_ ports.IDGenerator      = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		contracts:      make(map[string]entities.Contract),
		orders:         make(map[string]entities.Order),
		tickets:        make(map[string]entities.Ticket),
		ticketsByOrder: make(map[string]string),
		payouts:        make(map[string]entities.Payout),
		outbox:         make(map[string]outboxRecord),
	}
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.Transaction) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{
		store:          s,
		contracts:      make(map[string]entities.Contract),
		orders:         make(map[string]entities.Order),
		tickets:        make(map[string]entities.Ticket),
		ticketsByOrder: make(map[string]string),
		payouts:        make(map[string]entities.Payout),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) GetContract(_ context.Context, contractID string) (entities.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.contracts[strings.TrimSpace(contractID)]
	if !ok {
		return entities.Contract{}, domainerrors.ErrContractNotFound
	}
	return item, nil
}

func (s *Store) ListContracts(_ context.Context, after ports.ContractCursor, limit int) ([]entities.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Contract, 0, len(s.contracts))
	for _, item := range s.contracts {
		if after.Admits(item) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ContractID < items[j].ContractID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) GetOrder(_ context.Context, orderID string) (entities.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.orders[strings.TrimSpace(orderID)]
	if !ok {
		return entities.Order{}, domainerrors.ErrOrderNotFound
	}
	return item, nil
}

func (s *Store) ListSlashableOrders(_ context.Context, now time.Time, limit int) ([]entities.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Order, 0)
	for _, item := range s.orders {
		if item.Slashable() && item.Deadline.Before(now) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Deadline.Equal(items[j].Deadline) {
			return items[i].OrderID < items[j].OrderID
		}
		return items[i].Deadline.Before(items[j].Deadline)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) GetTicket(_ context.Context, ticketID string) (entities.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.tickets[strings.TrimSpace(ticketID)]
	if !ok {
		return entities.Ticket{}, domainerrors.ErrTicketNotFound
	}
	return item, nil
}

func (s *Store) ListTicketsByDistributor(_ context.Context, distributorID string) ([]entities.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Ticket, 0)
	for _, item := range s.tickets {
		if item.DistributorID == strings.TrimSpace(distributorID) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].TicketID < items[j].TicketID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ListPayoutsByRecipient(_ context.Context, recipientID string) ([]entities.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Payout, 0)
	for _, item := range s.payouts {
		if item.RecipientID == strings.TrimSpace(recipientID) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].PayoutID < items[j].PayoutID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		record := s.outbox[id]
		if record.SentAt != nil {
			continue
		}
		items = append(items, record.Message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	at := sentAt.UTC()
	record.SentAt = &at
	s.outbox[outboxID] = record
	return nil
}

// NewID hands out monotonically increasing ids, which keeps test fixtures readable.
func (s *Store) NewID(_ context.Context) (string, error) {
	return fmt.Sprintf("mem-%06d", s.sequence.Add(1)), nil
}

// OutboxEnvelopes decodes every envelope appended so far, sent or not.
func (s *Store) OutboxEnvelopes() []ports.EventEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.EventEnvelope, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(s.outbox[id].Message.Payload, &envelope); err != nil {
			continue
		}
		items = append(items, envelope)
	}
	return items
}

type transaction struct {
	store *Store

	contracts      map[string]entities.Contract
	orders         map[string]entities.Order
	tickets        map[string]entities.Ticket
	ticketsByOrder map[string]string
	payouts        map[string]entities.Payout
	outbox         []outboxRecord
}

func (t *transaction) GetContract(ctx context.Context, contractID string) (entities.Contract, error) {
	if item, ok := t.contracts[strings.TrimSpace(contractID)]; ok {
		return item, nil
	}
	return t.store.GetContract(ctx, contractID)
}

func (t *transaction) CreateContract(ctx context.Context, contract entities.Contract) error {
	if _, err := t.GetContract(ctx, contract.ContractID); err == nil {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	t.contracts[contract.ContractID] = contract
	return nil
}

func (t *transaction) UpdateContract(ctx context.Context, contract entities.Contract) (entities.Contract, error) {
	current, err := t.GetContract(ctx, contract.ContractID)
	if err != nil {
		return entities.Contract{}, err
	}
	if current.Version != contract.Version {
		return entities.Contract{}, domainerrors.ErrConcurrentUpdate
	}
	contract.Version++
	t.contracts[contract.ContractID] = contract
	return contract, nil
}

func (t *transaction) GetOrder(ctx context.Context, orderID string) (entities.Order, error) {
	if item, ok := t.orders[strings.TrimSpace(orderID)]; ok {
		return item, nil
	}
	return t.store.GetOrder(ctx, orderID)
}

func (t *transaction) CreateOrder(ctx context.Context, order entities.Order) error {
	if _, err := t.GetOrder(ctx, order.OrderID); err == nil {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	t.orders[order.OrderID] = order
	return nil
}

func (t *transaction) UpdateOrder(ctx context.Context, order entities.Order, expected entities.OrderStatus) error {
	current, err := t.GetOrder(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if current.Status != expected {
		return domainerrors.ErrConcurrentUpdate
	}
	t.orders[order.OrderID] = order
	return nil
}

func (t *transaction) GetTicket(ctx context.Context, ticketID string) (entities.Ticket, error) {
	if item, ok := t.tickets[strings.TrimSpace(ticketID)]; ok {
		return item, nil
	}
	return t.store.GetTicket(ctx, ticketID)
}

func (t *transaction) CreateTicket(_ context.Context, ticket entities.Ticket) error {
	if _, ok := t.ticketsByOrder[ticket.OrderID]; ok {
		return domainerrors.ErrTicketAlreadyIssued
	}
	t.store.mu.RLock()
	_, issued := t.store.ticketsByOrder[ticket.OrderID]
	t.store.mu.RUnlock()
	if issued {
		return domainerrors.ErrTicketAlreadyIssued
	}
	t.tickets[ticket.TicketID] = ticket
	t.ticketsByOrder[ticket.OrderID] = ticket.TicketID
	return nil
}

func (t *transaction) MarkTicketClaimed(ctx context.Context, ticketID string, claimedAt time.Time) error {
	ticket, err := t.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Claimed {
		return domainerrors.ErrAlreadyClaimed
	}
	at := claimedAt.UTC()
	ticket.Claimed = true
	ticket.ClaimedAt = &at
	t.tickets[ticket.TicketID] = ticket
	return nil
}

func (t *transaction) CreatePayout(_ context.Context, payout entities.Payout) error {
	if _, ok := t.payouts[payout.PayoutID]; ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	t.payouts[payout.PayoutID] = payout
	return nil
}

func (t *transaction) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	if err := envelope.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	t.outbox = append(t.outbox, outboxRecord{
		Message: ports.OutboxMessage{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt.UTC(),
		},
	})
	return nil
}

func (t *transaction) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, item := range t.contracts {
		s.contracts[id] = item
	}
	for id, item := range t.orders {
		s.orders[id] = item
	}
	for id, item := range t.tickets {
		s.tickets[id] = item
	}
	for orderID, ticketID := range t.ticketsByOrder {
		s.ticketsByOrder[orderID] = ticketID
	}
	for id, item := range t.payouts {
		s.payouts[id] = item
	}
	for _, record := range t.outbox {
		s.outbox[record.Message.OutboxID] = record
		s.outboxOrder = append(s.outboxOrder, record.Message.OutboxID)
	}
}
