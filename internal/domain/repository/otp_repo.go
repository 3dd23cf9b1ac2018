package repository

import (
	"context"
	"time"

	"github.com/yourusername/dealership-api/internal/domain/entity"
)

// OneTimeCodeRepository persists issued OTP codes.
type OneTimeCodeRepository interface {
	Create(ctx context.Context, code *entity.OneTimeCode) error
	// FindLatestUnverified returns the newest unverified record whose identifier
	// is one of identifiers and whose code and purpose match exactly.
	FindLatestUnverified(ctx context.Context, identifiers []string, code, purpose string) (*entity.OneTimeCode, error)
	// MarkVerified flips verified to true only if it is still false and
	// returns apperrors.ErrNotFound otherwise.
	MarkVerified(ctx context.Context, id uint, verifiedAt time.Time) error
}
