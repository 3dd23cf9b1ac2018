package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/domain/repository"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

// VehicleRepo implements repository.VehicleRepository.
type VehicleRepo struct {
	db *gorm.DB
}

func NewVehicleRepo(db *gorm.DB) *VehicleRepo {
	return &VehicleRepo{db: db}
}

func (r *VehicleRepo) Create(ctx context.Context, vehicle *entity.Vehicle) error {
	if err := r.db.WithContext(ctx).Create(vehicle).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: stock number %s already exists", apperrors.ErrConflict, vehicle.StockNumber)
		}
		return err
	}
	return nil
}

func (r *VehicleRepo) GetByID(ctx context.Context, id uint) (*entity.Vehicle, error) {
	var v entity.Vehicle
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *VehicleRepo) List(ctx context.Context, filter repository.VehicleFilter) ([]entity.Vehicle, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.Vehicle{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Make != "" {
		q = q.Where("LOWER(make) = LOWER(?)", filter.Make)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		q = q.Where(`LOWER(stock_number) LIKE ? ESCAPE '\' OR LOWER(model) LIKE ? ESCAPE '\' OR LOWER(registration_no) LIKE ? ESCAPE '\'`, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var vehicles []entity.Vehicle
	if err := q.Offset(filter.Offset).Order("created_at DESC, id DESC").Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

func (r *VehicleRepo) UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&entity.Vehicle{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return fmt.Errorf("%w: stock number already exists", apperrors.ErrConflict)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *VehicleRepo) UpdateStatus(ctx context.Context, id uint, from, to string) error {
	res := r.db.WithContext(ctx).Model(&entity.Vehicle{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: vehicle %d is no longer %s", apperrors.ErrConflict, id, from)
	}
	return nil
}

func (r *VehicleRepo) RecordSale(ctx context.Context, sale *entity.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Vehicle{}).
			Where("id = ? AND status <> ?", sale.VehicleID, entity.VehicleSold).
			Updates(map[string]interface{}{
				"status":     entity.VehicleSold,
				"sold_at":    sale.SoldAt,
				"sold_by":    sale.SellerID,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: vehicle %d is already sold", apperrors.ErrConflict, sale.VehicleID)
		}
		if err := tx.Create(sale).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: sale for vehicle %d already recorded", apperrors.ErrConflict, sale.VehicleID)
			}
			return err
		}
		return nil
	})
}

func (r *VehicleRepo) GetSale(ctx context.Context, vehicleID uint) (*entity.Sale, error) {
	var sale entity.Sale
	if err := r.db.WithContext(ctx).Where("vehicle_id = ?", vehicleID).First(&sale).Error; err != nil {
		return nil, notFound(err)
	}
	return &sale, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
