package bolt

import (
	"context"
	"strings"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"go.etcd.io/bbolt"
)

// Vault records yield pools in the store's vault_pools bucket. Inside
// Store.WithinTransaction it writes through the open transaction.
type Vault struct {
	db *bbolt.DB
}

var _ ports.VaultLedger = (*Vault)(nil)

// Vault returns the pool ledger sharing this store's file.
func (s *Store) Vault() *Vault {
	return &Vault{db: s.db}
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
	var pool entities.VaultPool
	read := func(tx *bbolt.Tx) error {
		var err error
		pool, err = loadPool(tx, vaultID)
		return err
	}
	if tx, ok := ctx.Value(txKey{}).(*bbolt.Tx); ok {
		return pool, read(tx)
	}
	return pool, v.db.View(read)
}

func (v *Vault) mutate(ctx context.Context, vaultID string, fn func(*entities.VaultPool) (uint64, error)) (uint64, error) {
	var out uint64
	write := func(tx *bbolt.Tx) error {
		pool, err := loadPool(tx, vaultID)
		if err != nil {
			return err
		}
		if out, err = fn(&pool); err != nil {
			return err
		}
		return put(tx, bucketVaultPools, pool.VaultID, pool)
	}
	if tx, ok := ctx.Value(txKey{}).(*bbolt.Tx); ok {
		return out, write(tx)
	}
	if err := v.db.Update(write); err != nil {
		return 0, err
	}
	return out, nil
}

func loadPool(tx *bbolt.Tx, vaultID string) (entities.VaultPool, error) {
	key := strings.TrimSpace(vaultID)
	pool := entities.VaultPool{VaultID: key}
	data := tx.Bucket(bucketVaultPools).Get([]byte(key))
	if data == nil {
		return pool, nil
	}
	if err := decodeGob(data, &pool); err != nil {
		return entities.VaultPool{}, err
	}
	return pool, nil
}
