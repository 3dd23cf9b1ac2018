package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/domain/repository"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

// Lock event types pushed to dashboards.
const (
	EventLockAcquired = "LOCK_ACQUIRED"
	EventLockReleased = "LOCK_RELEASED"
)

// EventPublisher fans lock events out to connected dashboards.
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

// LockReleasedEvent is the payload of EventLockReleased.
type LockReleasedEvent struct {
	VehicleID uint   `json:"vehicle_id"`
	HolderID  uint   `json:"holder_id"`
	Reason    string `json:"reason,omitempty"`
}

// LockHolder identifies the operator taking a lock.
type LockHolder struct {
	ID   uint
	Name string
}

// LockService manages advisory vehicle locks as TTL leases.
type LockService struct {
	store      repository.LockStore
	events     EventPublisher
	defaultTTL time.Duration
	maxTTL     time.Duration
	logger     *zap.Logger

	now      func() time.Time
	newToken func() string
}

// NewLockService creates the lock service. events may be nil.
func NewLockService(store repository.LockStore, events EventPublisher, defaultTTL, maxTTL time.Duration, logger *zap.Logger) *LockService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if maxTTL < defaultTTL {
		maxTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockService{
		store:      store,
		events:     events,
		defaultTTL: defaultTTL,
		maxTTL:     maxTTL,
		logger:     logger.Named("locks"),
		now:        time.Now,
		newToken:   uuid.NewString,
	}
}

func (s *LockService) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	if ttl > s.maxTTL {
		return s.maxTTL
	}
	return ttl
}

// TryAcquire takes the lock for holder. A holder that already owns the lock
// gets it back with the new type and a fresh lease; any other holder gets a
// *LockHeldError naming the current owner.
func (s *LockService) TryAcquire(ctx context.Context, vehicleID uint, holder LockHolder, lockType string, ttl time.Duration) (*entity.VehicleLock, error) {
	if !entity.ValidLockType(lockType) {
		return nil, fmt.Errorf("%w: unknown lock type %q", apperrors.ErrValidation, lockType)
	}
	if vehicleID == 0 || holder.ID == 0 {
		return nil, fmt.Errorf("%w: vehicle and holder are required", apperrors.ErrValidation)
	}

	now := s.now()
	lock := &entity.VehicleLock{
		VehicleID:  vehicleID,
		HolderID:   holder.ID,
		HolderName: holder.Name,
		LockType:   lockType,
		Token:      s.newToken(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(s.clampTTL(ttl)),
	}

	stored, acquired, err := s.store.Acquire(ctx, lock)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, &LockHeldError{Current: stored.Public()}
	}

	s.logger.Debug("lock acquired",
		zap.Uint("vehicle_id", vehicleID), zap.Uint("holder_id", holder.ID), zap.String("type", lockType))
	s.publish(EventLockAcquired, stored.Public())
	return stored, nil
}

// Heartbeat extends the lease held by token.
func (s *LockService) Heartbeat(ctx context.Context, vehicleID uint, token string, ttl time.Duration) (*entity.VehicleLock, error) {
	if token == "" {
		return nil, ErrLockNotHeld
	}
	lock, err := s.store.Renew(ctx, vehicleID, token, s.now().Add(s.clampTTL(ttl)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrLockNotHeld
		}
		return nil, err
	}
	return lock, nil
}

// Release drops the lock if token owns it. Releasing an absent lock or with
// a stale token is a no-op.
func (s *LockService) Release(ctx context.Context, vehicleID uint, token string) error {
	released, err := s.store.Release(ctx, vehicleID, token)
	if err != nil {
		return err
	}
	if released != nil {
		s.publish(EventLockReleased, LockReleasedEvent{VehicleID: vehicleID, HolderID: released.HolderID})
	}
	return nil
}

// Get returns the live lock on the vehicle without its token, or nil.
func (s *LockService) Get(ctx context.Context, vehicleID uint) (*entity.VehicleLock, error) {
	lock, err := s.store.Get(ctx, vehicleID)
	if err != nil || lock == nil {
		return nil, err
	}
	return lock.Public(), nil
}

// List returns all live locks without tokens.
func (s *LockService) List(ctx context.Context) ([]*entity.VehicleLock, error) {
	locks, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.VehicleLock, 0, len(locks))
	for _, l := range locks {
		out = append(out, l.Public())
	}
	return out, nil
}

// Require checks that token holds a live lock on the vehicle of one of types.
func (s *LockService) Require(ctx context.Context, vehicleID uint, token string, types ...string) (*entity.VehicleLock, error) {
	lock, err := s.store.Get(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, ErrLockRequired
	}
	if lock.Token != token {
		return nil, &LockHeldError{Current: lock.Public()}
	}
	if !lock.Allows(types...) {
		return nil, fmt.Errorf("%w: held lock is %s", ErrLockRequired, lock.LockType)
	}
	return lock, nil
}

func (s *LockService) publish(eventType string, data interface{}) {
	if s.events != nil {
		s.events.Publish(eventType, data)
	}
}
