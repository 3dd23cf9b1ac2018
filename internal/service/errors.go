package service

import (
	"errors"
	"fmt"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

// Service level errors. Each wraps a sentinel from internal/pkg/errors so
// handlers can map by kind with errors.Is.
var (
	ErrInvalidOTP      = fmt.Errorf("%w: invalid or expired OTP code", apperrors.ErrNotFound)
	ErrOTPExpired      = fmt.Errorf("%w: OTP code has expired", apperrors.ErrExpired)
	ErrUserNotFound    = fmt.Errorf("%w: user not found", apperrors.ErrNotFound)
	ErrVehicleNotFound = fmt.Errorf("%w: vehicle not found", apperrors.ErrNotFound)
	ErrLockNotHeld     = fmt.Errorf("%w: lock is not held by this token", apperrors.ErrConflict)
	ErrLockRequired    = fmt.Errorf("%w: a lock on the vehicle is required", apperrors.ErrConflict)
	ErrBadCredentials  = fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	ErrUserInactive    = fmt.Errorf("%w: account is disabled", apperrors.ErrForbidden)

	// ErrDelivery marks an SMS that could not be handed to the gateway.
	ErrDelivery = errors.New("message delivery failed")

	// ErrLockHeld is matched by errors.Is on a *LockHeldError.
	ErrLockHeld = errors.New("vehicle is locked by another user")
)

// LockHeldError carries the lock that blocked an acquire so the caller can
// show who holds it.
type LockHeldError struct {
	Current *entity.VehicleLock
}

func (e *LockHeldError) Error() string {
	if e.Current == nil {
		return ErrLockHeld.Error()
	}
	return fmt.Sprintf("vehicle %d is locked by %s (%s) until %s",
		e.Current.VehicleID, e.Current.HolderName, e.Current.LockType, e.Current.ExpiresAt.Format("15:04:05"))
}

func (e *LockHeldError) Is(target error) bool {
	return target == ErrLockHeld || target == apperrors.ErrConflict
}
