package repository

import (
	"context"
	"time"

	"github.com/yourusername/dealership-api/internal/domain/entity"
)

// LockStore holds vehicle lock leases.
type LockStore interface {
	// Acquire stores lock if the vehicle has no live lock, or if the live lock
	// belongs to lock.HolderID (then it is replaced, keeping the old token).
	// It returns the stored lock and true, or the current foreign lock and false.
	Acquire(ctx context.Context, lock *entity.VehicleLock) (*entity.VehicleLock, bool, error)
	// Renew extends the lease to expiresAt if token still owns it.
	Renew(ctx context.Context, vehicleID uint, token string, expiresAt time.Time) (*entity.VehicleLock, error)
	// Release deletes the lock if token owns it and returns the removed lock.
	// It returns nil when nothing was removed; that is not an error.
	Release(ctx context.Context, vehicleID uint, token string) (*entity.VehicleLock, error)
	Get(ctx context.Context, vehicleID uint) (*entity.VehicleLock, error)
	List(ctx context.Context) ([]*entity.VehicleLock, error)
}
