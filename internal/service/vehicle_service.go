package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/domain/repository"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
	"github.com/yourusername/dealership-api/internal/pkg/phone"
)

const (
	minVehicleYear  = 1950
	maxExportRows   = 10000
	defaultPageSize = 20
)

// VehicleInput holds vehicle fields for create (all required) and update
// (nil fields are left alone).
type VehicleInput struct {
	StockNumber    *string
	Make           *string
	Model          *string
	Year           *int
	RegistrationNo *string
	MileageKm      *int
	PriceLKR       *int64
	Description    *string
}

// MarkSoldInput describes the buyer.
type MarkSoldInput struct {
	CustomerName  string
	CustomerPhone string
	SalePriceLKR  int64
}

// VehicleDetails is a vehicle with the lock currently on it, if any.
type VehicleDetails struct {
	Vehicle *entity.Vehicle     `json:"vehicle"`
	Lock    *entity.VehicleLock `json:"lock,omitempty"`
}

// VehiclePage is one page of inventory.
type VehiclePage struct {
	Vehicles []entity.Vehicle `json:"vehicles"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// VehicleService manages inventory and the sales workflow. Writes require
// the caller to hold a compatible vehicle lock.
type VehicleService struct {
	vehicles repository.VehicleRepository
	locks    *LockService
	logger   *zap.Logger
	now      func() time.Time
}

func NewVehicleService(vehicles repository.VehicleRepository, locks *LockService, logger *zap.Logger) *VehicleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VehicleService{vehicles: vehicles, locks: locks, logger: logger.Named("vehicles"), now: time.Now}
}

func (s *VehicleService) List(ctx context.Context, filter repository.VehicleFilter) (*VehiclePage, error) {
	if filter.Status != "" && filter.Status != entity.VehicleAvailable &&
		filter.Status != entity.VehicleReserved && filter.Status != entity.VehicleSold {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, filter.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	} else if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	vehicles, total, err := s.vehicles.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &VehiclePage{Vehicles: vehicles, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// ListForExport returns up to maxExportRows vehicles matching filter.
func (s *VehicleService) ListForExport(ctx context.Context, filter repository.VehicleFilter) ([]entity.Vehicle, error) {
	filter.Limit = maxExportRows
	filter.Offset = 0
	vehicles, _, err := s.vehicles.List(ctx, filter)
	return vehicles, err
}

func (s *VehicleService) Get(ctx context.Context, id uint) (*VehicleDetails, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	lock, err := s.locks.Get(ctx, id)
	if err != nil {
		s.logger.Warn("lock lookup failed", zap.Uint("vehicle_id", id), zap.Error(err))
	}
	return &VehicleDetails{Vehicle: v, Lock: lock}, nil
}

func (s *VehicleService) Create(ctx context.Context, in VehicleInput) (*entity.Vehicle, error) {
	if in.StockNumber == nil || in.Make == nil || in.Model == nil || in.Year == nil || in.PriceLKR == nil {
		return nil, fmt.Errorf("%w: stock_number, make, model, year and price_lkr are required", apperrors.ErrValidation)
	}
	v := &entity.Vehicle{Status: entity.VehicleAvailable}
	if _, err := s.apply(v, in); err != nil {
		return nil, err
	}
	if err := s.vehicles.Create(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info("vehicle created", zap.Uint("vehicle_id", v.ID), zap.String("stock_number", v.StockNumber))
	return v, nil
}

// Update edits vehicle fields. The caller must hold an editing lock.
func (s *VehicleService) Update(ctx context.Context, id uint, lockToken string, in VehicleInput) (*entity.Vehicle, error) {
	if _, err := s.locks.Require(ctx, id, lockToken, entity.LockEditing); err != nil {
		return nil, err
	}
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.IsSold() {
		return nil, fmt.Errorf("%w: sold vehicles cannot be edited", apperrors.ErrConflict)
	}

	updates, err := s.apply(v, in)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrValidation)
	}
	if err := s.vehicles.UpdateFields(ctx, id, updates); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return s.load(ctx, id)
}

// Reserve moves an available vehicle to reserved.
func (s *VehicleService) Reserve(ctx context.Context, id uint, lockToken string) (*entity.Vehicle, error) {
	return s.changeStatus(ctx, id, lockToken, entity.VehicleAvailable, entity.VehicleReserved)
}

// Unreserve moves a reserved vehicle back to available.
func (s *VehicleService) Unreserve(ctx context.Context, id uint, lockToken string) (*entity.Vehicle, error) {
	return s.changeStatus(ctx, id, lockToken, entity.VehicleReserved, entity.VehicleAvailable)
}

func (s *VehicleService) changeStatus(ctx context.Context, id uint, lockToken, from, to string) (*entity.Vehicle, error) {
	if _, err := s.locks.Require(ctx, id, lockToken, entity.LockEditing, entity.LockSelling); err != nil {
		return nil, err
	}
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status != from {
		return nil, fmt.Errorf("%w: vehicle is %s", apperrors.ErrConflict, v.Status)
	}
	if err := s.vehicles.UpdateStatus(ctx, id, from, to); err != nil {
		return nil, err
	}
	v.Status = to
	return v, nil
}

// MarkSold records the sale and releases the caller's lock. The caller must
// hold a selling or moving_to_soldout lock.
func (s *VehicleService) MarkSold(ctx context.Context, id uint, lockToken string, sellerID uint, in MarkSoldInput) (*entity.Sale, error) {
	if _, err := s.locks.Require(ctx, id, lockToken, entity.LockSelling, entity.LockMovingToSoldOut); err != nil {
		return nil, err
	}

	customer := strings.TrimSpace(in.CustomerName)
	if customer == "" {
		return nil, fmt.Errorf("%w: customer name is required", apperrors.ErrValidation)
	}
	if in.SalePriceLKR <= 0 {
		return nil, fmt.Errorf("%w: sale price must be positive", apperrors.ErrValidation)
	}
	customerPhone, err := phone.Normalize(in.CustomerPhone)
	if err != nil {
		return nil, err
	}

	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.CanTransitionTo(entity.VehicleSold) {
		return nil, fmt.Errorf("%w: vehicle is %s", apperrors.ErrConflict, v.Status)
	}

	sale := &entity.Sale{
		VehicleID:     id,
		SellerID:      sellerID,
		CustomerName:  customer,
		CustomerPhone: customerPhone,
		SalePriceLKR:  in.SalePriceLKR,
		SoldAt:        s.now(),
	}
	if err := s.vehicles.RecordSale(ctx, sale); err != nil {
		return nil, err
	}
	s.logger.Info("vehicle sold", zap.Uint("vehicle_id", id), zap.Uint("seller_id", sellerID), zap.Int64("price_lkr", sale.SalePriceLKR))

	if err := s.locks.Release(ctx, id, lockToken); err != nil {
		s.logger.Warn("release lock after sale failed", zap.Uint("vehicle_id", id), zap.Error(err))
	}
	return sale, nil
}

// GetSale returns the sale record of a sold vehicle.
func (s *VehicleService) GetSale(ctx context.Context, id uint) (*entity.Sale, error) {
	sale, err := s.vehicles.GetSale(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no sale for vehicle %d", apperrors.ErrNotFound, id)
		}
		return nil, err
	}
	return sale, nil
}

func (s *VehicleService) load(ctx context.Context, id uint) (*entity.Vehicle, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return v, nil
}

// apply validates the set fields of in, copies them onto v and returns the
// column updates.
func (s *VehicleService) apply(v *entity.Vehicle, in VehicleInput) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if in.StockNumber != nil {
		sn := strings.ToUpper(strings.TrimSpace(*in.StockNumber))
		if sn == "" {
			return nil, fmt.Errorf("%w: stock number cannot be empty", apperrors.ErrValidation)
		}
		v.StockNumber = sn
		updates["stock_number"] = sn
	}
	if in.Make != nil {
		mk := strings.TrimSpace(*in.Make)
		if mk == "" {
			return nil, fmt.Errorf("%w: make cannot be empty", apperrors.ErrValidation)
		}
		v.Make = mk
		updates["make"] = mk
	}
	if in.Model != nil {
		md := strings.TrimSpace(*in.Model)
		if md == "" {
			return nil, fmt.Errorf("%w: model cannot be empty", apperrors.ErrValidation)
		}
		v.Model = md
		updates["model"] = md
	}
	if in.Year != nil {
		maxYear := s.now().Year() + 1
		if *in.Year < minVehicleYear || *in.Year > maxYear {
			return nil, fmt.Errorf("%w: year must be between %d and %d", apperrors.ErrValidation, minVehicleYear, maxYear)
		}
		v.Year = *in.Year
		updates["year"] = *in.Year
	}
	if in.RegistrationNo != nil {
		reg := strings.ToUpper(strings.TrimSpace(*in.RegistrationNo))
		v.RegistrationNo = reg
		updates["registration_no"] = reg
	}
	if in.MileageKm != nil {
		if *in.MileageKm < 0 {
			return nil, fmt.Errorf("%w: mileage cannot be negative", apperrors.ErrValidation)
		}
		v.MileageKm = *in.MileageKm
		updates["mileage_km"] = *in.MileageKm
	}
	if in.PriceLKR != nil {
		if *in.PriceLKR < 0 {
			return nil, fmt.Errorf("%w: price cannot be negative", apperrors.ErrValidation)
		}
		v.PriceLKR = *in.PriceLKR
		updates["price_lkr"] = *in.PriceLKR
	}
	if in.Description != nil {
		v.Description = strings.TrimSpace(*in.Description)
		updates["description"] = v.Description
	}
	return updates, nil
}
