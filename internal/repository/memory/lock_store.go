package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

// LockStore keeps vehicle leases in process memory. Expired leases are
// dropped lazily on access.
type LockStore struct {
	mu    sync.Mutex
	locks map[uint]*entity.VehicleLock
	now   func() time.Time
}

// NewLockStore creates an empty store.
func NewLockStore() *LockStore {
	return &LockStore{
		locks: make(map[uint]*entity.VehicleLock),
		now:   time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *LockStore) WithClock(now func() time.Time) *LockStore {
	s.now = now
	return s
}

// live returns the unexpired lock for vehicleID. Caller holds mu.
func (s *LockStore) live(vehicleID uint) *entity.VehicleLock {
	l, ok := s.locks[vehicleID]
	if !ok {
		return nil
	}
	if l.IsExpired(s.now()) {
		delete(s.locks, vehicleID)
		return nil
	}
	return l
}

func (s *LockStore) Acquire(_ context.Context, lock *entity.VehicleLock) (*entity.VehicleLock, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.live(lock.VehicleID)
	if current != nil && current.HolderID != lock.HolderID {
		cp := *current
		return &cp, false, nil
	}

	stored := *lock
	if current != nil {
		stored.Token = current.Token
		stored.AcquiredAt = current.AcquiredAt
	}
	s.locks[lock.VehicleID] = &stored

	cp := stored
	return &cp, true, nil
}

func (s *LockStore) Renew(_ context.Context, vehicleID uint, token string, expiresAt time.Time) (*entity.VehicleLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.live(vehicleID)
	if current == nil || current.Token != token {
		return nil, apperrors.ErrNotFound
	}
	current.ExpiresAt = expiresAt

	cp := *current
	return &cp, nil
}

func (s *LockStore) Release(_ context.Context, vehicleID uint, token string) (*entity.VehicleLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.live(vehicleID)
	if current == nil || current.Token != token {
		return nil, nil
	}
	delete(s.locks, vehicleID)
	cp := *current
	return &cp, nil
}

func (s *LockStore) Get(_ context.Context, vehicleID uint) (*entity.VehicleLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.live(vehicleID)
	if current == nil {
		return nil, nil
	}
	cp := *current
	return &cp, nil
}

func (s *LockStore) List(_ context.Context) ([]*entity.VehicleLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.VehicleLock, 0, len(s.locks))
	for id := range s.locks {
		if l := s.live(id); l != nil {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}
