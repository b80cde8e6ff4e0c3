package memory

import (
	"context"
	"strings"
	"sync"

	"commissionvault/contexts/finance-core/commission-escrow-service/domain/entities"
	"commissionvault/contexts/finance-core/commission-escrow-service/ports"
)

// Vault keeps yield pools in process memory. Pool changes are not part of
// the store's staged transaction.
type Vault struct {
	mu    sync.Mutex
	pools map[string]entities.VaultPool
}

var _ ports.VaultLedger = (*Vault)(nil)

func NewVault() *Vault {
	return &Vault{pools: make(map[string]entities.VaultPool)}
}

func (v *Vault) Deposit(_ context.Context, vaultID string, assets uint64) (uint64, error) {
	return v.mutate(vaultID, func(pool *entities.VaultPool) (uint64, error) {
		return pool.Deposit(assets)
	})
}

func (v *Vault) Redeem(_ context.Context, vaultID string, shares uint64) (uint64, error) {
	return v.mutate(vaultID, func(pool *entities.VaultPool) (uint64, error) {
		return pool.Redeem(shares)
	})
}

func (v *Vault) PreviewRedeem(ctx context.Context, vaultID string, shares uint64) (uint64, error) {
	pool, _ := v.GetPool(ctx, vaultID)
	return pool.PreviewRedeem(shares)
}

func (v *Vault) Accrue(_ context.Context, vaultID string, assets uint64) (entities.VaultPool, error) {
	var pool entities.VaultPool
	_, err := v.mutate(vaultID, func(current *entities.VaultPool) (uint64, error) {
		if err := current.Accrue(assets); err != nil {
			return 0, err
		}
		pool = *current
		return 0, nil
	})
	return pool, err
}

func (v *Vault) GetPool(_ context.Context, vaultID string) (entities.VaultPool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := strings.TrimSpace(vaultID)
	pool, ok := v.pools[key]
	if !ok {
		pool.VaultID = key
	}
	return pool, nil
}

// mutate applies fn to a copy of the pool and keeps the copy only on success.
func (v *Vault) mutate(vaultID string, fn func(*entities.VaultPool) (uint64, error)) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := strings.TrimSpace(vaultID)
	pool, ok := v.pools[key]
	if !ok {
		pool.VaultID = key
	}
	out, err := fn(&pool)
	if err != nil {
		return 0, err
	}
	v.pools[key] = pool
	return out, nil
}
