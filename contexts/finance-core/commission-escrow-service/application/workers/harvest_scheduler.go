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

const HarvesterCallerID = "system:harvest-scheduler"

// HarvestScheduler harvests accrued yield across contracts on every run.
type HarvestScheduler struct {
	Repository ports.Repository
	Harvest    commands.HarvestInterestUseCase
	BatchSize  int
	Logger     *slog.Logger
}

// RunOnce pages through every contract, BatchSize at a time.
func (h HarvestScheduler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(h.Logger)
	limit := h.BatchSize
	if limit <= 0 {
		limit = 100
	}

	var (
		cursor    ports.ContractCursor
		scanned   int
		harvested int
		errs      []error
	)
	for {
		contracts, err := h.Repository.ListContracts(ctx, cursor, limit)
		if err != nil {
			logger.Error("harvest list contracts failed",
				"event", "escrow_harvest_list_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"error", err.Error(),
			)
			return errors.Join(append(errs, err)...)
		}

		for _, contract := range contracts {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := h.Harvest.Execute(ctx, commands.HarvestInterestCommand{
				ContractID: contract.ContractID,
				CallerID:   HarvesterCallerID,
			})
			if err != nil {
				// a drained stake cannot be harvested until it is topped up
				if errors.Is(err, domainerrors.ErrInsufficientStake) {
					continue
				}
				errs = append(errs, err)
				continue
			}
			if !result.NoOp {
				harvested++
			}
		}
		scanned += len(contracts)

		if len(contracts) < limit {
			break
		}
		cursor = ports.CursorAfter(contracts[len(contracts)-1])
	}

	if harvested > 0 || len(errs) > 0 {
		logger.Info("harvest cycle completed",
			"event", "escrow_harvest_cycle_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"contract_count", scanned,
			"harvested_count", harvested,
			"failed_count", len(errs),
		)
	}
	return errors.Join(errs...)
}
