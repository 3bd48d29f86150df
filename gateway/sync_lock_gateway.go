package gateway

import (
	"context"
	"errors"

	"place-indexer/domain"
	"place-indexer/driver"
	"place-indexer/port"
)

// Locker is satisfied by driver.RedisLock and driver.LocalLock.
type Locker interface {
	Acquire(ctx context.Context) (func(context.Context) error, error)
}

type SyncLockGateway struct {
	locker Locker
}

var _ port.SyncLock = (*SyncLockGateway)(nil)

func NewSyncLockGateway(locker Locker) *SyncLockGateway {
	return &SyncLockGateway{locker: locker}
}

func (g *SyncLockGateway) TryLock(ctx context.Context) (func(context.Context) error, error) {
	release, err := g.locker.Acquire(ctx)
	if err != nil {
		if errors.Is(err, driver.ErrLockHeld) {
			return nil, domain.ErrSyncInProgress
		}
		return nil, repositoryError("TryLock", err)
	}
	return release, nil
}
