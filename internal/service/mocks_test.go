package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/domain/repository"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
)

// MockUserRepository implements repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByMobileNumber(ctx context.Context, variants []string) (*entity.User, error) {
	args := m.Called(ctx, variants)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]entity.User, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uint, newPassword string) error {
	args := m.Called(ctx, id, newPassword)
	return args.Error(0)
}

// MockVehicleRepository implements repository.VehicleRepository.
type MockVehicleRepository struct {
	mock.Mock
}

func (m *MockVehicleRepository) Create(ctx context.Context, v *entity.Vehicle) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id uint) (*entity.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) List(ctx context.Context, filter repository.VehicleFilter) ([]entity.Vehicle, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Vehicle), args.Get(1).(int64), args.Error(2)
}

func (m *MockVehicleRepository) UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockVehicleRepository) UpdateStatus(ctx context.Context, id uint, from, to string) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockVehicleRepository) RecordSale(ctx context.Context, sale *entity.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *MockVehicleRepository) GetSale(ctx context.Context, vehicleID uint) (*entity.Sale, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Sale), args.Error(1)
}

// MockSMSSender implements SMSSender.
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) Send(ctx context.Context, to, message string) error {
	args := m.Called(ctx, to, message)
	return args.Error(0)
}

// MockEmailSender implements EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendWelcome(ctx context.Context, toEmail, fullName, role string) error {
	args := m.Called(ctx, toEmail, fullName, role)
	return args.Error(0)
}

// MockOTPIssuer implements OTPIssuer.
type MockOTPIssuer struct {
	mock.Mock
}

func (m *MockOTPIssuer) Issue(ctx context.Context, in IssueOTPInput) (*IssueOTPResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IssueOTPResult), args.Error(1)
}

// recordingPublisher captures published lock events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	data   []interface{}
}

func (p *recordingPublisher) Publish(eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.data = append(p.data, data)
}

func (p *recordingPublisher) Last() interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.data) == 0 {
		return nil
	}
	return p.data[len(p.data)-1]
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// otpStore is an in-memory OneTimeCodeRepository with the same lookup rules
// as the Postgres one.
type otpStore struct {
	mu      sync.Mutex
	records []*entity.OneTimeCode
	nextID  uint
	failOn  string
}

func (s *otpStore) Create(_ context.Context, code *entity.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "create" {
		return fmt.Errorf("connection refused")
	}
	s.nextID++
	code.ID = s.nextID
	cp := *code
	s.records = append(s.records, &cp)
	return nil
}

func (s *otpStore) FindLatestUnverified(_ context.Context, identifiers []string, code, purpose string) (*entity.OneTimeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.Verified || r.Code != code || r.Purpose != purpose {
			continue
		}
		for _, id := range identifiers {
			if r.Identifier == id {
				cp := *r
				return &cp, nil
			}
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *otpStore) MarkVerified(_ context.Context, id uint, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id && !r.Verified {
			r.Verified = true
			at := verifiedAt
			r.VerifiedAt = &at
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// failingRateStore always returns err.
type failingRateStore struct {
	err error
}

func (s *failingRateStore) Increment(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, s.err
}
