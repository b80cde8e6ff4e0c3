package postgresadapter

import (
	"context"
	"errors"
	"strings"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Vault records yield pools in escrow_vault_pools, so every replica sees the
// same totals. Inside Repository.WithinTransaction it uses the open transaction.
type Vault struct {
	repo *Repository
}

var _ ports.VaultLedger = (*Vault)(nil)

// Vault returns the pool ledger stored next to the escrow tables.
func (r *Repository) Vault() *Vault {
	return &Vault{repo: r}
}

func (v *Vault) Deposit(ctx context.Context, vaultID string, assets uint64) (uint64, error) {
	return v.mutate(ctx, vaultID, func(pool *entities.VaultPool) (uint64, error) {
		return pool.Deposit(assets)
	})
}

func (v *Vault) Redeem(ctx context.Context, vaultID string, shares uint64) (uint64, error) {
	return v.mutate(ctx, vaultID, func(pool *entities.VaultPool) (uint64, error) {
		return pool.Redeem(shares)
	})
}

func (v *Vault) PreviewRedeem(ctx context.Context, vaultID string, shares uint64) (uint64, error) {
	pool, err := v.GetPool(ctx, vaultID)
	if err != nil {
		return 0, err
	}
	return pool.PreviewRedeem(shares)
}

func (v *Vault) Accrue(ctx context.Context, vaultID string, assets uint64) (entities.VaultPool, error) {
	var pool entities.VaultPool
	_, err := v.mutate(ctx, vaultID, func(current *entities.VaultPool) (uint64, error) {
		if err := current.Accrue(assets); err != nil {
			return 0, err
		}
		pool = *current
		return 0, nil
	})
	return pool, err
}

func (v *Vault) GetPool(ctx context.Context, vaultID string) (entities.VaultPool, error) {
	key := strings.TrimSpace(vaultID)
	var row vaultPoolModel
	err := v.conn(ctx).Where("vault_id = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.VaultPool{VaultID: key}, nil
	}
	if err != nil {
		return entities.VaultPool{}, v.repo.logError("escrow_repo_get_vault_pool_failed", err, "vault_id", key)
	}
	return row.toEntity(), nil
}

func (v *Vault) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return v.repo.db.WithContext(ctx)
}

// mutate locks the pool row, applies fn and writes the result back.
func (v *Vault) mutate(ctx context.Context, vaultID string, fn func(*entities.VaultPool) (uint64, error)) (uint64, error) {
	key := strings.TrimSpace(vaultID)
	var out uint64
	apply := func(tx *gorm.DB) error {
		// seed the row so concurrent first deposits serialize on its lock
		seed := vaultPoolModel{VaultID: key, TotalAssets: decimal.Zero, TotalShares: decimal.Zero}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vault_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return v.repo.logError("escrow_repo_seed_vault_pool_failed", err, "vault_id", key)
		}

		var row vaultPoolModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("vault_id = ?", key).
			Take(&row).
			Error; err != nil {
			return v.repo.logError("escrow_repo_lock_vault_pool_failed", err, "vault_id", key)
		}
		pool := row.toEntity()
		var err error
		if out, err = fn(&pool); err != nil {
			return err
		}

		next := vaultPoolModelFromEntity(pool)
		if err := tx.Model(&vaultPoolModel{}).
			Where("vault_id = ?", key).
			Updates(map[string]any{
				"total_assets": next.TotalAssets,
				"total_shares": next.TotalShares,
			}).Error; err != nil {
			return v.repo.logError("escrow_repo_update_vault_pool_failed", err, "vault_id", key)
		}
		return nil
	}

	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		if err := apply(tx); err != nil {
			return 0, err
		}
		return out, nil
	}
	if err := v.repo.db.WithContext(ctx).Transaction(apply); err != nil {
		return 0, err
	}
	return out, nil
}
