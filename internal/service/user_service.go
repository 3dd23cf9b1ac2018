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

// CreateUserInput is the admin form for a new dashboard user.
type CreateUserInput struct {
	FullName     string
	Email        string
	MobileNumber string
	Password     string
	Role         string
}

// UpdateUserInput holds optional changes; nil fields are left alone.
type UpdateUserInput struct {
	FullName *string
	Role     *string
	Active   *bool
}

// UserPage is one page of users.
type UserPage struct {
	Users   []entity.User `json:"users"`
	Total   int64         `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// UserService manages dashboard users.
type UserService struct {
	users  repository.UserRepository
	email  EmailSender
	logger *zap.Logger
}

func NewUserService(users repository.UserRepository, email EmailSender, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, email: email, logger: logger.Named("users")}
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, page, pageSize int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	} else if pageSize > 100 {
		pageSize = 100
	}

	users, total, err := s.users.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Page: page, PerPage: pageSize}, nil
}

// Create validates and stores a user, then sends a welcome email when an
// address is given. Email failures are only logged.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", apperrors.ErrValidation)
	}
	if !entity.ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, in.Role)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLength)
	}
	mobile, err := phone.Normalize(in.MobileNumber)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", apperrors.ErrValidation)
	}

	user := &entity.User{
		FullName:     fullName,
		Email:        email,
		MobileNumber: mobile,
		Password:     in.Password,
		Role:         in.Role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.Uint("user_id", user.ID), zap.String("role", user.Role))

	if email != "" && s.email != nil {
		sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := s.email.SendWelcome(sendCtx, email, fullName, user.Role); err != nil {
			s.logger.Warn("welcome email failed", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

// Update changes the name, role or active flag of a user. An admin cannot
// demote or disable their own account.
func (s *UserService) Update(ctx context.Context, actorID, id uint, in UpdateUserInput) (*entity.User, error) {
	updates := map[string]interface{}{}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: full name cannot be empty", apperrors.ErrValidation)
		}
		updates["full_name"] = name
	}
	if in.Role != nil {
		if !entity.ValidRole(*in.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, *in.Role)
		}
		if actorID == id && *in.Role != entity.RoleAdmin {
			return nil, fmt.Errorf("%w: cannot change your own role", apperrors.ErrForbidden)
		}
		updates["role"] = *in.Role
	}
	if in.Active != nil {
		if actorID == id && !*in.Active {
			return nil, fmt.Errorf("%w: cannot deactivate your own account", apperrors.ErrForbidden)
		}
		updates["active"] = *in.Active
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrValidation)
	}

	if err := s.users.UpdateFields(ctx, id, updates); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}
