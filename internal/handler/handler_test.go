package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/domain/repository"
	"github.com/yourusername/dealership-api/internal/middleware"
	"github.com/yourusername/dealership-api/internal/repository/memory"
	"github.com/yourusername/dealership-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestGinContext builds a *gin.Context with an optional JSON body.
func newTestGinContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

func authenticate(c *gin.Context, userID uint, role string) {
	c.Set(middleware.ContextUserID, userID)
	c.Set(middleware.ContextRole, role)
}

func newLimiter() *service.RateLimiter {
	return service.NewRateLimiter(memory.NewRateLimitStore(), zap.NewNop())
}

// ---- mocks ----

type MockOTPService struct{ mock.Mock }

func (m *MockOTPService) Issue(ctx context.Context, in service.IssueOTPInput) (*service.IssueOTPResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssueOTPResult), args.Error(1)
}

func (m *MockOTPService) Verify(ctx context.Context, rawPhone, code, purpose string) (*service.VerifyOTPResult, error) {
	args := m.Called(ctx, rawPhone, code, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerifyOTPResult), args.Error(1)
}

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) Login(ctx context.Context, identifier, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, rawPhone string) (*service.IssueOTPResult, error) {
	args := m.Called(ctx, rawPhone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssueOTPResult), args.Error(1)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, page, pageSize int) (*service.UserPage, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UserPage), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, in service.CreateUserInput) (*entity.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, actorID, id uint, in service.UpdateUserInput) (*entity.User, error) {
	args := m.Called(ctx, actorID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

type MockVehicleService struct{ mock.Mock }

func (m *MockVehicleService) List(ctx context.Context, filter repository.VehicleFilter) (*service.VehiclePage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VehiclePage), args.Error(1)
}

func (m *MockVehicleService) ListForExport(ctx context.Context, filter repository.VehicleFilter) ([]entity.Vehicle, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Vehicle), args.Error(1)
}

func (m *MockVehicleService) Get(ctx context.Context, id uint) (*service.VehicleDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VehicleDetails), args.Error(1)
}

func (m *MockVehicleService) Create(ctx context.Context, in service.VehicleInput) (*entity.Vehicle, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Vehicle), args.Error(1)
}

func (m *MockVehicleService) Update(ctx context.Context, id uint, lockToken string, in service.VehicleInput) (*entity.Vehicle, error) {
	args := m.Called(ctx, id, lockToken, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Vehicle), args.Error(1)
}

func (m *MockVehicleService) Reserve(ctx context.Context, id uint, lockToken string) (*entity.Vehicle, error) {
	args := m.Called(ctx, id, lockToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Vehicle), args.Error(1)
}

func (m *MockVehicleService) Unreserve(ctx context.Context, id uint, lockToken string) (*entity.Vehicle, error) {
	args := m.Called(ctx, id, lockToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Vehicle), args.Error(1)
}

func (m *MockVehicleService) MarkSold(ctx context.Context, id uint, lockToken string, sellerID uint, in service.MarkSoldInput) (*entity.Sale, error) {
	args := m.Called(ctx, id, lockToken, sellerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Sale), args.Error(1)
}

func (m *MockVehicleService) GetSale(ctx context.Context, id uint) (*entity.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Sale), args.Error(1)
}

type MockLockService struct{ mock.Mock }

func (m *MockLockService) TryAcquire(ctx context.Context, vehicleID uint, holder service.LockHolder, lockType string, ttl time.Duration) (*entity.VehicleLock, error) {
	args := m.Called(ctx, vehicleID, holder, lockType, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VehicleLock), args.Error(1)
}

func (m *MockLockService) Heartbeat(ctx context.Context, vehicleID uint, token string, ttl time.Duration) (*entity.VehicleLock, error) {
	args := m.Called(ctx, vehicleID, token, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VehicleLock), args.Error(1)
}

func (m *MockLockService) Release(ctx context.Context, vehicleID uint, token string) error {
	return m.Called(ctx, vehicleID, token).Error(0)
}

func (m *MockLockService) List(ctx context.Context) ([]*entity.VehicleLock, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.VehicleLock), args.Error(1)
}
