package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

// OneTimeCodeRepo implements repository.OneTimeCodeRepository.
type OneTimeCodeRepo struct {
	db *gorm.DB
}

func NewOneTimeCodeRepo(db *gorm.DB) *OneTimeCodeRepo {
	return &OneTimeCodeRepo{db: db}
}

func (r *OneTimeCodeRepo) Create(ctx context.Context, code *entity.OneTimeCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return fmt.Errorf("failed to create one-time code: %w", err)
	}
	return nil
}

func (r *OneTimeCodeRepo) FindLatestUnverified(ctx context.Context, identifiers []string, code, purpose string) (*entity.OneTimeCode, error) {
	var otp entity.OneTimeCode
	err := r.db.WithContext(ctx).
		Where("identifier IN ? AND code = ? AND purpose = ? AND verified = ?", identifiers, code, purpose, false).
		Order("created_at DESC, id DESC").
		First(&otp).Error
	if err != nil {
		if err := notFound(err); err == apperrors.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find one-time code: %w", err)
	}
	return &otp, nil
}

func (r *OneTimeCodeRepo) MarkVerified(ctx context.Context, id uint, verifiedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.OneTimeCode{}).
		Where("id = ? AND verified = ?", id, false).
		Updates(map[string]interface{}{
			"verified":    true,
			"verified_at": verifiedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark one-time code verified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
