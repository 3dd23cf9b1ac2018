package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

// UserRepo implements repository.UserRepository.
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a user repository.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: mobile number or email already registered", apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?) AND email <> ''", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepo) GetByMobileNumber(ctx context.Context, variants []string) (*entity.User, error) {
	if len(variants) == 0 {
		return nil, apperrors.ErrNotFound
	}
	var user entity.User
	if err := r.db.WithContext(ctx).Where("mobile_number IN ?", variants).Order("id").First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]entity.User, int64, error) {
	var (
		users []entity.User
		total int64
	)
	q := r.db.WithContext(ctx).Model(&entity.User{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateFields updates the given columns. The password column is never
// touched here; use UpdatePassword.
func (r *UserRepo) UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error {
	delete(updates, "password")
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return fmt.Errorf("%w: mobile number or email already registered", apperrors.ErrConflict)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdatePassword hashes and stores a new password. Raw SQL bypasses the
// BeforeSave hook so the hash is not hashed again.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint, newPassword string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res := r.db.WithContext(ctx).Exec(
		"UPDATE users SET password = ?, updated_at = ? WHERE id = ?",
		string(hashed), time.Now(), id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return err
}
