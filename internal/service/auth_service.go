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
	"github.com/yourusername/dealership-api/pkg/auth"
)

const minPasswordLength = 8

// OTPIssuer issues one-time codes.
type OTPIssuer interface {
	Issue(ctx context.Context, in IssueOTPInput) (*IssueOTPResult, error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}

// AuthService handles dashboard sign in and password recovery.
type AuthService struct {
	users  repository.UserRepository
	otp    OTPIssuer
	jwt    *auth.JWTService
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, otp OTPIssuer, jwt *auth.JWTService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, otp: otp, jwt: jwt, logger: logger.Named("auth")}
}

// Login checks the password of the user identified by email or mobile
// number and issues an access token. Unknown users and wrong passwords give
// the same error.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: identifier and password are required", apperrors.ErrValidation)
	}

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) {
			s.logger.Info("login for unknown identifier", zap.String("identifier", identifier))
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(password) {
		s.logger.Info("login with wrong password", zap.Uint("user_id", user.ID))
		return nil, ErrBadCredentials
	}
	if !user.Active {
		return nil, ErrUserInactive
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ForgotPassword sends a password_reset code to the owner of the number.
func (s *AuthService) ForgotPassword(ctx context.Context, rawPhone string) (*IssueOTPResult, error) {
	variants, err := phone.Variants(rawPhone)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByMobileNumber(ctx, variants)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrUserInactive
	}

	return s.otp.Issue(ctx, IssueOTPInput{
		UserID:      &user.ID,
		PhoneNumber: user.MobileNumber,
		Purpose:     entity.OTPPurposePasswordReset,
	})
}

// ResetPassword sets a new password for the user named in a password_reset
// verification token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLength)
	}
	claims, err := s.jwt.ParseVerificationToken(token, entity.OTPPurposePasswordReset)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	if err := s.users.UpdatePassword(ctx, claims.UserID, newPassword); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("password reset", zap.Uint("user_id", claims.UserID))
	return nil
}

func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	if strings.Contains(identifier, "@") {
		return s.users.GetByEmail(ctx, normalizeEmail(identifier))
	}
	variants, err := phone.Variants(identifier)
	if err != nil {
		return nil, err
	}
	return s.users.GetByMobileNumber(ctx, variants)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
