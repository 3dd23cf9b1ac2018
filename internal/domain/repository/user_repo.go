package repository

import (
	"context"

	"github.com/yourusername/dealership-api/internal/domain/entity"
)

// UserRepository persists dashboard users.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetByMobileNumber matches any of the given textual forms of one number.
	GetByMobileNumber(ctx context.Context, variants []string) (*entity.User, error)
	List(ctx context.Context, limit, offset int) ([]entity.User, int64, error)
	UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error
	UpdatePassword(ctx context.Context, id uint, newPassword string) error
}
