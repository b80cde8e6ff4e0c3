package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"go.etcd.io/bbolt"
)

var (
	bucketContracts      = []byte("contracts")
	bucketOrders         = []byte("orders")
	bucketTickets        = []byte("tickets")
	bucketTicketsByOrder = []byte("tickets_by_order")
	bucketPayouts        = []byte("payouts")
	bucketOutbox         = []byte("outbox")
	bucketOutboxIDs      = []byte("outbox_ids")
	bucketVaultPools     = []byte("vault_pools")
)

// Store is a single-node escrow store on bbolt. bbolt allows one writer at a
// time, which gives WithinTransaction the serialization it promises.
type Store struct {
	db *bbolt.DB
}

// txKey carries the open write transaction to the vault so pool changes
// commit or roll back with the escrow records.
type txKey struct{}

type outboxRecord struct {
	Message ports.OutboxMessage
	SentAt  *time.Time
}

var (
	_ ports.Repository       = (*Store)(nil)
	_ ports.OutboxRepository = (*Store)(nil)
)

// NewStore creates the escrow buckets in db if they are missing.
func NewStore(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketContracts, bucketOrders, bucketTickets, bucketTicketsByOrder,
			bucketPayouts, bucketOutbox, bucketOutboxIDs, bucketVaultPools,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt store: create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, btx), transaction{tx: btx})
	})
}

func (s *Store) GetContract(_ context.Context, contractID string) (entities.Contract, error) {
	var item entities.Contract
	err := s.db.View(func(tx *bbolt.Tx) error {
		return get(tx, bucketContracts, contractID, &item, domainerrors.ErrContractNotFound)
	})
	return item, err
}

func (s *Store) ListContracts(_ context.Context, after ports.ContractCursor, limit int) ([]entities.Contract, error) {
	items := make([]entities.Contract, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketContracts).ForEach(func(_, data []byte) error {
			var item entities.Contract
			if err := decodeGob(data, &item); err != nil {
				return err
			}
			if after.Admits(item) {
				items = append(items, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
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
	var item entities.Order
	err := s.db.View(func(tx *bbolt.Tx) error {
		return get(tx, bucketOrders, orderID, &item, domainerrors.ErrOrderNotFound)
	})
	return item, err
}

func (s *Store) ListSlashableOrders(_ context.Context, now time.Time, limit int) ([]entities.Order, error) {
	items := make([]entities.Order, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOrders).ForEach(func(_, data []byte) error {
			var item entities.Order
			if err := decodeGob(data, &item); err != nil {
				return err
			}
			if item.Slashable() && item.Deadline.Before(now) {
				items = append(items, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
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
	var item entities.Ticket
	err := s.db.View(func(tx *bbolt.Tx) error {
		return get(tx, bucketTickets, ticketID, &item, domainerrors.ErrTicketNotFound)
	})
	return item, err
}

func (s *Store) ListTicketsByDistributor(_ context.Context, distributorID string) ([]entities.Ticket, error) {
	distributorID = strings.TrimSpace(distributorID)
	items := make([]entities.Ticket, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTickets).ForEach(func(_, data []byte) error {
			var item entities.Ticket
			if err := decodeGob(data, &item); err != nil {
				return err
			}
			if item.DistributorID == distributorID {
				items = append(items, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
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
	recipientID = strings.TrimSpace(recipientID)
	items := make([]entities.Payout, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPayouts).ForEach(func(_, data []byte) error {
			var item entities.Payout
			if err := decodeGob(data, &item); err != nil {
				return err
			}
			if item.RecipientID == recipientID {
				items = append(items, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].PayoutID < items[j].PayoutID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// ListPendingOutbox walks the outbox in append order; keys are bucket sequence numbers.
func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketOutbox).Cursor()
		for key, data := cursor.First(); key != nil && len(items) < limit; key, data = cursor.Next() {
			var record outboxRecord
			if err := decodeGob(data, &record); err != nil {
				return err
			}
			if record.SentAt == nil {
				items = append(items, record.Message)
			}
		}
		return nil
	})
	return items, err
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		seq := tx.Bucket(bucketOutboxIDs).Get([]byte(outboxID))
		if seq == nil {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		bucket := tx.Bucket(bucketOutbox)
		var record outboxRecord
		if err := decodeGob(bucket.Get(seq), &record); err != nil {
			return err
		}
		at := sentAt.UTC()
		record.SentAt = &at
		data, err := encodeGob(record)
		if err != nil {
			return err
		}
		return bucket.Put(seq, data)
	})
}

type transaction struct {
	tx *bbolt.Tx
}

func (t transaction) GetContract(_ context.Context, contractID string) (entities.Contract, error) {
	var item entities.Contract
	err := get(t.tx, bucketContracts, contractID, &item, domainerrors.ErrContractNotFound)
	return item, err
}

func (t transaction) CreateContract(_ context.Context, contract entities.Contract) error {
	return insert(t.tx, bucketContracts, contract.ContractID, contract)
}

func (t transaction) UpdateContract(ctx context.Context, contract entities.Contract) (entities.Contract, error) {
	current, err := t.GetContract(ctx, contract.ContractID)
	if err != nil {
		return entities.Contract{}, err
	}
	if current.Version != contract.Version {
		return entities.Contract{}, domainerrors.ErrConcurrentUpdate
	}
	contract.Version++
	if err := put(t.tx, bucketContracts, contract.ContractID, contract); err != nil {
		return entities.Contract{}, err
	}
	return contract, nil
}

func (t transaction) GetOrder(_ context.Context, orderID string) (entities.Order, error) {
	var item entities.Order
	err := get(t.tx, bucketOrders, orderID, &item, domainerrors.ErrOrderNotFound)
	return item, err
}

func (t transaction) CreateOrder(_ context.Context, order entities.Order) error {
	return insert(t.tx, bucketOrders, order.OrderID, order)
}

func (t transaction) UpdateOrder(ctx context.Context, order entities.Order, expected entities.OrderStatus) error {
	current, err := t.GetOrder(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if current.Status != expected {
		return domainerrors.ErrConcurrentUpdate
	}
	return put(t.tx, bucketOrders, order.OrderID, order)
}

func (t transaction) GetTicket(_ context.Context, ticketID string) (entities.Ticket, error) {
	var item entities.Ticket
	err := get(t.tx, bucketTickets, ticketID, &item, domainerrors.ErrTicketNotFound)
	return item, err
}

func (t transaction) CreateTicket(_ context.Context, ticket entities.Ticket) error {
	index := t.tx.Bucket(bucketTicketsByOrder)
	if index.Get([]byte(ticket.OrderID)) != nil {
		return domainerrors.ErrTicketAlreadyIssued
	}
	if err := insert(t.tx, bucketTickets, ticket.TicketID, ticket); err != nil {
		return err
	}
	return index.Put([]byte(ticket.OrderID), []byte(ticket.TicketID))
}

func (t transaction) MarkTicketClaimed(ctx context.Context, ticketID string, claimedAt time.Time) error {
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
	return put(t.tx, bucketTickets, ticket.TicketID, ticket)
}

func (t transaction) CreatePayout(_ context.Context, payout entities.Payout) error {
	return insert(t.tx, bucketPayouts, payout.PayoutID, payout)
}

func (t transaction) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	if err := envelope.Validate(); err != nil {
		return err
	}
	ids := t.tx.Bucket(bucketOutboxIDs)
	if ids.Get([]byte(envelope.EventID)) != nil {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	bucket := t.tx.Bucket(bucketOutbox)
	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}
	data, err := encodeGob(outboxRecord{Message: ports.OutboxMessage{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}})
	if err != nil {
		return err
	}
	key := sequenceKey(seq)
	if err := bucket.Put(key, data); err != nil {
		return err
	}
	return ids.Put([]byte(envelope.EventID), key)
}

func get(tx *bbolt.Tx, bucket []byte, id string, v any, notFound error) error {
	data := tx.Bucket(bucket).Get([]byte(strings.TrimSpace(id)))
	if data == nil {
		return notFound
	}
	if err := decodeGob(data, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", bucket, id, err)
	}
	return nil
}

func insert(tx *bbolt.Tx, bucket []byte, id string, v any) error {
	if strings.TrimSpace(id) == "" || tx.Bucket(bucket).Get([]byte(id)) != nil {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return put(tx, bucket, id, v)
}

func put(tx *bbolt.Tx, bucket []byte, id string, v any) error {
	data, err := encodeGob(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", bucket, id, err)
	}
	return tx.Bucket(bucket).Put([]byte(id), data)
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	if data == nil {
		return errors.New("empty record")
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
