package idgen

import (
	"context"

	"commissionvault/contexts/finance-core/commission-escrow-service/ports"

	"github.com/google/uuid"
)

// UUIDGenerator issues time-ordered v7 ids so primary keys stay index friendly.
type UUIDGenerator struct{}

var _ ports.IDGenerator = UUIDGenerator{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
