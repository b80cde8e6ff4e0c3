package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
)

// txKey carries the open gorm transaction to the vault so pool changes
// commit or roll back with the escrow rows.
type txKey struct{}

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

var (
	_ ports.Repository       = (*Repository)(nil)
	_ ports.OutboxRepository = (*Repository)(nil)
)

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: application.ResolveLogger(logger),
	}
}

// Migrate creates or updates the escrow tables.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&contractModel{},
		&orderModel{},
		&ticketModel{},
		&payoutModel{},
		&outboxModel{},
		&vaultPoolModel{},
	)
}

func (r *Repository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.Transaction) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx), transaction{db: tx, repo: r})
	})
}

func (r *Repository) GetContract(ctx context.Context, contractID string) (entities.Contract, error) {
	return getContract(r.db.WithContext(ctx), contractID)
}

func (r *Repository) ListContracts(ctx context.Context, after ports.ContractCursor, limit int) ([]entities.Contract, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx)
	if !after.IsZero() {
		query = query.Where("(created_at, contract_id) > (?, ?)", after.CreatedAt.UTC(), after.ContractID)
	}
	var rows []contractModel
	if err := query.
		Order("created_at ASC, contract_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("escrow_repo_list_contracts_failed", err, "limit", limit)
	}
	items := make([]entities.Contract, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID string) (entities.Order, error) {
	return getOrder(r.db.WithContext(ctx), orderID)
}

func (r *Repository) ListSlashableOrders(ctx context.Context, now time.Time, limit int) ([]entities.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []orderModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(entities.OrderStatusPending), string(entities.OrderStatusDisputed)}).
		Where("deadline < ?", now.UTC()).
		Order("deadline ASC, order_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("escrow_repo_list_slashable_failed", err,
			"now", now.UTC().Format(time.RFC3339),
			"limit", limit,
		)
	}
	items := make([]entities.Order, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetTicket(ctx context.Context, ticketID string) (entities.Ticket, error) {
	return getTicket(r.db.WithContext(ctx), ticketID)
}

func (r *Repository) ListTicketsByDistributor(ctx context.Context, distributorID string) ([]entities.Ticket, error) {
	var rows []ticketModel
	if err := r.db.WithContext(ctx).
		Where("distributor_id = ?", strings.TrimSpace(distributorID)).
		Order("created_at ASC, ticket_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("escrow_repo_list_tickets_failed", err, "distributor_id", distributorID)
	}
	items := make([]entities.Ticket, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPayoutsByRecipient(ctx context.Context, recipientID string) ([]entities.Payout, error) {
	var rows []payoutModel
	if err := r.db.WithContext(ctx).
		Where("recipient_id = ?", strings.TrimSpace(recipientID)).
		Order("created_at ASC, payout_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("escrow_repo_list_payouts_failed", err, "recipient_id", recipientID)
	}
	items := make([]entities.Payout, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC, outbox_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

type transaction struct {
	db   *gorm.DB
	repo *Repository
}

func (t transaction) locked() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t transaction) GetContract(_ context.Context, contractID string) (entities.Contract, error) {
	return getContract(t.locked(), contractID)
}

func (t transaction) CreateContract(_ context.Context, contract entities.Contract) error {
	row := contractModelFromEntity(contract)
	if err := t.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return t.repo.logError("escrow_repo_create_contract_failed", err, "contract_id", contract.ContractID)
	}
	return nil
}

func (t transaction) UpdateContract(_ context.Context, contract entities.Contract) (entities.Contract, error) {
	row := contractModelFromEntity(contract)
	result := t.db.Model(&contractModel{}).
		Where("contract_id = ?", row.ContractID).
		Where("version = ?", contract.Version).
		Updates(map[string]any{
			"staked_shares": row.StakedShares,
			"version":       contract.Version + 1,
			"updated_at":    row.UpdatedAt,
		})
	if result.Error != nil {
		return entities.Contract{}, t.repo.logError("escrow_repo_update_contract_failed", result.Error,
			"contract_id", contract.ContractID,
		)
	}
	if result.RowsAffected == 0 {
		t.repo.logWarn("escrow_repo_update_contract_version_conflict",
			"contract_id", contract.ContractID,
			"expected_version", contract.Version,
		)
		return entities.Contract{}, domainerrors.ErrConcurrentUpdate
	}
	contract.Version++
	return contract, nil
}

func (t transaction) GetOrder(_ context.Context, orderID string) (entities.Order, error) {
	return getOrder(t.locked(), orderID)
}

func (t transaction) CreateOrder(_ context.Context, order entities.Order) error {
	row := orderModelFromEntity(order)
	if err := t.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return t.repo.logError("escrow_repo_create_order_failed", err, "order_id", order.OrderID)
	}
	return nil
}

func (t transaction) UpdateOrder(_ context.Context, order entities.Order, expected entities.OrderStatus) error {
	result := t.db.Model(&orderModel{}).
		Where("order_id = ?", order.OrderID).
		Where("status = ?", string(expected)).
		Updates(map[string]any{
			"status":     string(order.Status),
			"updated_at": order.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return t.repo.logError("escrow_repo_update_order_failed", result.Error, "order_id", order.OrderID)
	}
	if result.RowsAffected == 0 {
		t.repo.logWarn("escrow_repo_update_order_status_conflict",
			"order_id", order.OrderID,
			"expected_status", string(expected),
		)
		return domainerrors.ErrConcurrentUpdate
	}
	return nil
}

func (t transaction) GetTicket(_ context.Context, ticketID string) (entities.Ticket, error) {
	return getTicket(t.locked(), ticketID)
}

func (t transaction) CreateTicket(_ context.Context, ticket entities.Ticket) error {
	row := ticketModelFromEntity(ticket)
	if err := t.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			if constraintName(err) == "escrow_tickets_order_unique" {
				return domainerrors.ErrTicketAlreadyIssued
			}
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return t.repo.logError("escrow_repo_create_ticket_failed", err, "ticket_id", ticket.TicketID)
	}
	return nil
}

func (t transaction) MarkTicketClaimed(_ context.Context, ticketID string, claimedAt time.Time) error {
	result := t.db.Model(&ticketModel{}).
		Where("ticket_id = ?", ticketID).
		Where("claimed = ?", false).
		Updates(map[string]any{
			"claimed":    true,
			"claimed_at": claimedAt.UTC(),
		})
	if result.Error != nil {
		return t.repo.logError("escrow_repo_mark_ticket_claimed_failed", result.Error, "ticket_id", ticketID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAlreadyClaimed
	}
	return nil
}

func (t transaction) CreatePayout(_ context.Context, payout entities.Payout) error {
	row := payoutModelFromEntity(payout)
	if err := t.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return t.repo.logError("escrow_repo_create_payout_failed", err, "payout_id", payout.PayoutID)
	}
	return nil
}

func (t transaction) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	if err := envelope.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	result := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return t.repo.logError("escrow_repo_append_outbox_failed", result.Error,
			"outbox_id", row.OutboxID,
			"event_type", row.EventType,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func getContract(db *gorm.DB, contractID string) (entities.Contract, error) {
	var row contractModel
	err := db.Where("contract_id = ?", strings.TrimSpace(contractID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Contract{}, domainerrors.ErrContractNotFound
		}
		return entities.Contract{}, err
	}
	return row.toEntity(), nil
}

func getOrder(db *gorm.DB, orderID string) (entities.Order, error) {
	var row orderModel
	err := db.Where("order_id = ?", strings.TrimSpace(orderID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Order{}, domainerrors.ErrOrderNotFound
		}
		return entities.Order{}, err
	}
	return row.toEntity(), nil
}

func getTicket(db *gorm.DB, ticketID string) (entities.Ticket, error) {
	var row ticketModel
	err := db.Where("ticket_id = ?", strings.TrimSpace(ticketID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ticket{}, domainerrors.ErrTicketNotFound
		}
		return entities.Ticket{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("escrow repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("escrow repository warning", fields...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// units are stored as numeric(20,0) so the full uint64 range survives.
func unitsToDecimal(value uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(value), 0)
}

func decimalToUnits(value decimal.Decimal) uint64 {
	integer := value.BigInt()
	if integer.Sign() < 0 || !integer.IsUint64() {
		return 0
	}
	return integer.Uint64()
}
