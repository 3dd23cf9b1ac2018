package entity

import "time"

// Lock types shown in the dashboard banner.
const (
	LockEditing         = "editing"
	LockSelling         = "selling"
	LockMovingToSoldOut = "moving_to_soldout"
)

// ValidLockType reports whether t is a known lock type.
func ValidLockType(t string) bool {
	switch t {
	case LockEditing, LockSelling, LockMovingToSoldOut:
		return true
	}
	return false
}

// VehicleLock marks a vehicle as being acted on by one operator. It is a
// TTL lease: the holder renews it with heartbeats and must present Token to
// renew or release it.
type VehicleLock struct {
	VehicleID  uint      `json:"vehicle_id"`
	HolderID   uint      `json:"holder_id"`
	HolderName string    `json:"holder_name"`
	LockType   string    `json:"lock_type"`
	Token      string    `json:"token,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (l *VehicleLock) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Public returns a copy without the holder token, safe to show to other
// operators.
func (l *VehicleLock) Public() *VehicleLock {
	cp := *l
	cp.Token = ""
	return &cp
}

// Allows reports whether holding this lock permits an action requiring one of
// the given lock types.
func (l *VehicleLock) Allows(types ...string) bool {
	for _, t := range types {
		if l.LockType == t {
			return true
		}
	}
	return false
}
