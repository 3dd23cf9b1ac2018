package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/domain/repository"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

type vehicleFixture struct {
	svc     *VehicleService
	repo    *MockVehicleRepository
	locks   *LockService
	lockFix *lockFixture
	clock   *fakeClock
}

func newVehicleFixture() *vehicleFixture {
	lf := newLockFixture()
	repo := new(MockVehicleRepository)
	svc := NewVehicleService(repo, lf.svc, nil)
	svc.now = lf.clock.Now
	return &vehicleFixture{svc: svc, repo: repo, locks: lf.svc, lockFix: lf, clock: lf.clock}
}

func createTestVehicle(id uint, status string) *entity.Vehicle {
	return &entity.Vehicle{
		ID: id, StockNumber: "STK-001", Make: "Toyota", Model: "Aqua", Year: 2018,
		PriceLKR: 7_500_000, Status: status,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func i64Ptr(i int64) *int64   { return &i }

func TestVehicleService_Create(t *testing.T) {
	f := newVehicleFixture()
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(v *entity.Vehicle) bool {
		return v.StockNumber == "STK-9" && v.Status == entity.VehicleAvailable && v.PriceLKR == 5_000_000
	})).Return(nil)

	v, err := f.svc.Create(context.Background(), VehicleInput{
		StockNumber: strPtr(" stk-9 "), Make: strPtr("Honda"), Model: strPtr("Vezel"),
		Year: intPtr(2019), PriceLKR: i64Ptr(5_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "STK-9", v.StockNumber)
	f.repo.AssertExpectations(t)
}

func TestVehicleService_CreateValidation(t *testing.T) {
	f := newVehicleFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, VehicleInput{Make: strPtr("Honda")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Create(ctx, VehicleInput{
		StockNumber: strPtr("S"), Make: strPtr("Honda"), Model: strPtr("Fit"),
		Year: intPtr(1900), PriceLKR: i64Ptr(1),
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Create(ctx, VehicleInput{
		StockNumber: strPtr("S"), Make: strPtr("Honda"), Model: strPtr("Fit"),
		Year: intPtr(2015), PriceLKR: i64Ptr(-5),
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestVehicleService_UpdateRequiresEditingLock(t *testing.T) {
	f := newVehicleFixture()
	ctx := context.Background()

	_, err := f.svc.Update(ctx, 1, "", VehicleInput{PriceLKR: i64Ptr(1)})
	assert.ErrorIs(t, err, ErrLockRequired)

	selling, err := f.locks.TryAcquire(ctx, 1, alice, entity.LockSelling, 0)
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, 1, selling.Token, VehicleInput{PriceLKR: i64Ptr(1)})
	assert.ErrorIs(t, err, ErrLockRequired)

	_, err = f.svc.Update(ctx, 1, "someone-else", VehicleInput{PriceLKR: i64Ptr(1)})
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestVehicleService_UpdateWithLock(t *testing.T) {
	f := newVehicleFixture()
	ctx := context.Background()
	lock, err := f.locks.TryAcquire(ctx, 1, alice, entity.LockEditing, 0)
	require.NoError(t, err)

	updated := createTestVehicle(1, entity.VehicleAvailable)
	updated.PriceLKR = 7_000_000
	f.repo.On("GetByID", mock.Anything, uint(1)).Return(createTestVehicle(1, entity.VehicleAvailable), nil).Once()
	f.repo.On("UpdateFields", mock.Anything, uint(1), map[string]interface{}{"price_lkr": int64(7_000_000)}).Return(nil)
	f.repo.On("GetByID", mock.Anything, uint(1)).Return(updated, nil).Once()

	v, err := f.svc.Update(ctx, 1, lock.Token, VehicleInput{PriceLKR: i64Ptr(7_000_000)})
	require.NoError(t, err)
	assert.Equal(t, int64(7_000_000), v.PriceLKR)
	f.repo.AssertExpectations(t)
}

func TestVehicleService_UpdateSoldVehicle(t *testing.T) {
	f := newVehicleFixture()
	ctx := context.Background()
	lock, err := f.locks.TryAcquire(ctx, 1, alice, entity.LockEditing, 0)
	require.NoError(t, err)
	f.repo.On("GetByID", mock.Anything, uint(1)).Return(createTestVehicle(1, entity.VehicleSold), nil)

	_, err = f.svc.Update(ctx, 1, lock.Token, VehicleInput{PriceLKR: i64Ptr(1)})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestVehicleService_ReserveAndUnreserve(t *testing.T) {
	f := newVehicleFixture()
	ctx := context.Background()
	lock, err := f.locks.TryAcquire(ctx, 1, alice, entity.LockSelling, 0)
	require.NoError(t, err)

	f.repo.On("GetByID", mock.Anything, uint(1)).Return(createTestVehicle(1, entity.VehicleAvailable), nil).Once()
	f.repo.On("UpdateStatus", mock.Anything, uint(1), entity.VehicleAvailable, entity.VehicleReserved).Return(nil)
	v, err := f.svc.Reserve(ctx, 1, lock.Token)
	require.NoError(t, err)
	assert.Equal(t, entity.VehicleReserved, v.Status)

	f.repo.On("GetByID", mock.Anything, uint(1)).Return(createTestVehicle(1, entity.VehicleAvailable), nil).Once()
	_, err = f.svc.Unreserve(ctx, 1, lock.Token)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestVehicleService_MarkSold(t *testing.T) {
	f := newVehicleFixture()
	ctx := context.Background()
	lock, err := f.locks.TryAcquire(ctx, 1, alice, entity.LockMovingToSoldOut, 0)
	require.NoError(t, err)

	f.repo.On("GetByID", mock.Anything, uint(1)).Return(createTestVehicle(1, entity.VehicleReserved), nil)
	f.repo.On("RecordSale", mock.Anything, mock.MatchedBy(func(s *entity.Sale) bool {
		return s.VehicleID == 1 && s.SellerID == alice.ID && s.CustomerPhone == "94771234567" &&
			s.SoldAt.Equal(f.clock.Now())
	})).Return(nil)

	sale, err := f.svc.MarkSold(ctx, 1, lock.Token, alice.ID, MarkSoldInput{
		CustomerName: "Ruwan", CustomerPhone: "0771234567", SalePriceLKR: 7_200_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7_200_000), sale.SalePriceLKR)

	current, err := f.locks.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, current, "lock released after sale")
	assert.Equal(t, []string{EventLockAcquired, EventLockReleased}, f.lockFix.events.Events())
}

func TestVehicleService_MarkSoldNeedsSellingLock(t *testing.T) {
	f := newVehicleFixture()
	ctx := context.Background()
	lock, err := f.locks.TryAcquire(ctx, 1, alice, entity.LockEditing, 0)
	require.NoError(t, err)

	_, err = f.svc.MarkSold(ctx, 1, lock.Token, alice.ID, MarkSoldInput{CustomerName: "R", CustomerPhone: "0771234567", SalePriceLKR: 1})
	assert.ErrorIs(t, err, ErrLockRequired)
	f.repo.AssertNotCalled(t, "RecordSale", mock.Anything, mock.Anything)
}

func TestVehicleService_MarkSoldAlreadySold(t *testing.T) {
	f := newVehicleFixture()
	ctx := context.Background()
	lock, err := f.locks.TryAcquire(ctx, 1, alice, entity.LockSelling, 0)
	require.NoError(t, err)
	f.repo.On("GetByID", mock.Anything, uint(1)).Return(createTestVehicle(1, entity.VehicleSold), nil)

	_, err = f.svc.MarkSold(ctx, 1, lock.Token, alice.ID, MarkSoldInput{CustomerName: "R", CustomerPhone: "0771234567", SalePriceLKR: 1})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestVehicleService_GetIncludesLock(t *testing.T) {
	f := newVehicleFixture()
	ctx := context.Background()
	_, err := f.locks.TryAcquire(ctx, 1, bob, entity.LockEditing, 0)
	require.NoError(t, err)
	f.repo.On("GetByID", mock.Anything, uint(1)).Return(createTestVehicle(1, entity.VehicleAvailable), nil)

	d, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, d.Lock)
	assert.Equal(t, "Bob", d.Lock.HolderName)
	assert.Empty(t, d.Lock.Token)
}

func TestVehicleService_GetMissing(t *testing.T) {
	f := newVehicleFixture()
	f.repo.On("GetByID", mock.Anything, uint(5)).Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.Get(context.Background(), 5)
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestVehicleService_ListDefaults(t *testing.T) {
	f := newVehicleFixture()
	f.repo.On("List", mock.Anything, repository.VehicleFilter{Status: entity.VehicleAvailable, Limit: 20}).
		Return([]entity.Vehicle{*createTestVehicle(1, entity.VehicleAvailable)}, int64(1), nil)

	page, err := f.svc.List(context.Background(), repository.VehicleFilter{Status: entity.VehicleAvailable})
	require.NoError(t, err)
	assert.Len(t, page.Vehicles, 1)
	assert.Equal(t, 20, page.Limit)

	_, err = f.svc.List(context.Background(), repository.VehicleFilter{Status: "scrapped"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
