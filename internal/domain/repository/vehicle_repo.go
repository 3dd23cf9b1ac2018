package repository

import (
	"context"

	"github.com/yourusername/dealership-api/internal/domain/entity"
)

// VehicleFilter narrows inventory listings. Zero values mean no filter.
type VehicleFilter struct {
	Status string
	Make   string
	Search string
	Limit  int
	Offset int
}

// VehicleRepository persists inventory and sales.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *entity.Vehicle) error
	GetByID(ctx context.Context, id uint) (*entity.Vehicle, error)
	List(ctx context.Context, filter VehicleFilter) ([]entity.Vehicle, int64, error)
	UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error
	// UpdateStatus changes status only if the current status equals from.
	UpdateStatus(ctx context.Context, id uint, from, to string) error
	// RecordSale marks the vehicle sold and inserts the sale in one transaction.
	RecordSale(ctx context.Context, sale *entity.Sale) error
	GetSale(ctx context.Context, vehicleID uint) (*entity.Sale, error)
}
