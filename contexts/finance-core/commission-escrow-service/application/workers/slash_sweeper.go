package workers

import (
	"context"
	"errors"
	"log/slog"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/application/commands"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

// SweeperCallerID is recorded as the slashing party for sweeper-driven slashes.
const SweeperCallerID = "system:slash-sweeper"

// SlashSweeper slashes unresolved orders whose deadline has passed.
type SlashSweeper struct {
	Repository ports.Repository
	Slash      commands.SlashOrderUseCase
	Clock      ports.Clock
	BatchSize  int
	Logger     *slog.Logger
}

func (s SlashSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	limit := s.BatchSize
	if limit <= 0 {
		limit = 100
	}
	if s.Clock == nil {
		return commands.ErrClockRequired
	}
	now := s.Clock.Now().UTC()

	due, err := s.Repository.ListSlashableOrders(ctx, now, limit)
	if err != nil {
		logger.Error("slash sweep list failed",
			"event", "escrow_slash_sweep_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	var (
		slashed int
		errs    []error
	)
	for _, order := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := s.Slash.Execute(ctx, commands.SlashOrderCommand{
			OrderID:  order.OrderID,
			CallerID: SweeperCallerID,
		})
		switch {
		case err == nil:
			slashed++
		case errors.Is(err, domainerrors.ErrOrderNotPending), errors.Is(err, domainerrors.ErrDeadlineNotReached):
			// resolved or slashed by someone else since the listing
		default:
			errs = append(errs, err)
		}
	}

	if slashed > 0 || len(errs) > 0 {
		logger.Info("slash sweep completed",
			"event", "escrow_slash_sweep_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"due_count", len(due),
			"slashed_count", slashed,
			"failed_count", len(errs),
		)
	}
	return errors.Join(errs...)
}
