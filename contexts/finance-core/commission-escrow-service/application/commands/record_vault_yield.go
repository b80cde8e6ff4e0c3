package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "commissionvault/contexts/finance-core/commission-escrow-service/application"
	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	domainerrors "commissionvault/contexts/finance-core/commission-escrow-service/domain/errors"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

type RecordVaultYieldCommand struct {
	VaultID  string
	CallerID string
	Assets   uint64
}

// RecordVaultYieldUseCase books yield realized by the underlying instrument
// into a vault pool. Only the configured operator may call it; with no
// operator configured the operation is closed.
type RecordVaultYieldUseCase struct {
	Repository  ports.Repository
	Vault       ports.VaultLedger
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	OperatorID  string
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (u RecordVaultYieldUseCase) Execute(ctx context.Context, cmd RecordVaultYieldCommand) (pool entities.VaultPool, err error) {
	defer func(started time.Time) { observe(u.Metrics, "record_vault_yield", started, err) }(time.Now())
	logger := application.ResolveLogger(u.Logger)

	operator := strings.TrimSpace(u.OperatorID)
	if operator == "" || strings.TrimSpace(cmd.CallerID) != operator {
		return entities.VaultPool{}, domainerrors.ErrNotVaultOperator
	}
	vaultID := strings.TrimSpace(cmd.VaultID)
	if vaultID == "" || cmd.Assets == 0 {
		return entities.VaultPool{}, domainerrors.ErrInvalidYield
	}
	now, err := currentTime(u.Clock)
	if err != nil {
		return entities.VaultPool{}, err
	}

	err = u.Repository.WithinTransaction(ctx, func(ctx context.Context, tx ports.Transaction) error {
		updated, err := u.Vault.Accrue(ctx, vaultID, cmd.Assets)
		if err != nil {
			return fmt.Errorf("accrue %d into vault %s: %w", cmd.Assets, vaultID, err)
		}
		if err := appendEnvelope(ctx, tx, u.IDGenerator, vaultYieldRecordedType, "vault_id", vaultID, now, map[string]any{
			"vault_id":     vaultID,
			"assets":       cmd.Assets,
			"total_assets": updated.TotalAssets,
			"total_shares": updated.TotalShares,
		}); err != nil {
			return err
		}
		pool = updated
		return nil
	})
	if err != nil {
		logger.Error("record vault yield failed",
			"event", "escrow_vault_yield_failed",
			"module", application.ModuleName,
			"layer", "application",
			"vault_id", vaultID,
			"error", err.Error(),
		)
		return entities.VaultPool{}, err
	}

	logger.Info("vault yield recorded",
		"event", "escrow_vault_yield_recorded",
		"module", application.ModuleName,
		"layer", "application",
		"vault_id", vaultID,
		"assets", cmd.Assets,
		"total_assets", pool.TotalAssets,
	)
	return pool, nil
}
