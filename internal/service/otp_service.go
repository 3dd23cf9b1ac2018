package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/domain/repository"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
	"github.com/yourusername/dealership-api/internal/pkg/phone"
)

const (
	otpCodeMin = 100000
	otpCodeMax = 999999

	defaultOTPTTL = 15 * time.Minute
)

// TokenIssuer signs verification tokens.
type TokenIssuer interface {
	GenerateVerificationToken(userID uint, purpose string, ttl time.Duration) (string, time.Time, error)
}

// IssueOTPInput is the input of OTPService.Issue.
type IssueOTPInput struct {
	UserID      *uint
	PhoneNumber string
	Purpose     string
}

// IssueOTPResult reports an issued code. Delivered is false when the SMS
// gateway failed; the code is still valid.
type IssueOTPResult struct {
	Identifier string
	ExpiresAt  time.Time
	ExpiresIn  int
	Delivered  bool
	Warning    string
}

// VerifyOTPResult carries the verification token for the resolved user.
type VerifyOTPResult struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}

// OTPService issues and verifies SMS one-time codes.
type OTPService struct {
	codes    repository.OneTimeCodeRepository
	users    repository.UserRepository
	sms      SMSSender
	tokens   TokenIssuer
	ttl      time.Duration
	tokenTTL time.Duration
	logger   *zap.Logger

	now          func() time.Time
	generateCode func() (string, error)
}

// NewOTPService creates the OTP service. Zero TTLs default to 15 minutes.
func NewOTPService(
	codes repository.OneTimeCodeRepository,
	users repository.UserRepository,
	sms SMSSender,
	tokens TokenIssuer,
	ttl, tokenTTL time.Duration,
	logger *zap.Logger,
) *OTPService {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultOTPTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPService{
		codes:        codes,
		users:        users,
		sms:          sms,
		tokens:       tokens,
		ttl:          ttl,
		tokenTTL:     tokenTTL,
		logger:       logger.Named("otp"),
		now:          time.Now,
		generateCode: generateOTPCode,
	}
}

// Issue creates a code for the phone number, stores it and sends it by SMS.
// A failed send does not undo the issuance.
func (s *OTPService) Issue(ctx context.Context, in IssueOTPInput) (*IssueOTPResult, error) {
	if !entity.ValidOTPPurpose(in.Purpose) {
		return nil, fmt.Errorf("%w: unknown purpose %q", apperrors.ErrValidation, in.Purpose)
	}
	identifier, err := phone.Normalize(in.PhoneNumber)
	if err != nil {
		return nil, err
	}

	if in.UserID != nil {
		if _, err := s.users.GetByID(ctx, *in.UserID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown user %d", apperrors.ErrValidation, *in.UserID)
			}
			return nil, fmt.Errorf("load user %d: %w", *in.UserID, err)
		}
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp code: %w", err)
	}

	now := s.now()
	record := &entity.OneTimeCode{
		UserID:     in.UserID,
		Identifier: identifier,
		Code:       code,
		Purpose:    in.Purpose,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store otp code: %w", err)
	}

	result := &IssueOTPResult{
		Identifier: identifier,
		ExpiresAt:  record.ExpiresAt,
		ExpiresIn:  int(s.ttl.Seconds()),
		Delivered:  true,
	}

	msg := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes()))
	if err := s.sms.Send(ctx, identifier, msg); err != nil {
		s.logger.Warn("otp sms delivery failed",
			zap.String("identifier", identifier), zap.Uint("otp_id", record.ID), zap.Error(err))
		result.Delivered = false
		result.Warning = "OTP generated but SMS delivery failed. Please try again shortly."
		return result, nil
	}

	s.logger.Info("otp issued", zap.String("identifier", identifier), zap.String("purpose", in.Purpose))
	return result, nil
}

// Verify checks code against the newest unverified record for the phone
// number, consumes it and returns a verification token.
func (s *OTPService) Verify(ctx context.Context, rawPhone, code, purpose string) (*VerifyOTPResult, error) {
	if !isOTPCode(code) {
		return nil, fmt.Errorf("%w: otp must be 6 digits", apperrors.ErrValidation)
	}
	if !entity.ValidOTPPurpose(purpose) {
		return nil, fmt.Errorf("%w: unknown purpose %q", apperrors.ErrValidation, purpose)
	}
	variants, err := phone.Variants(rawPhone)
	if err != nil {
		return nil, err
	}

	record, err := s.codes.FindLatestUnverified(ctx, variants, code, purpose)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	now := s.now()
	if record.IsExpired(now) {
		return nil, ErrOTPExpired
	}

	if err := s.codes.MarkVerified(ctx, record.ID, now); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Lost a race with a concurrent verify of the same code.
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	user, err := s.resolveUser(ctx, record, variants)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.GenerateVerificationToken(user.ID, purpose, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	s.logger.Info("otp verified", zap.Uint("user_id", user.ID), zap.String("purpose", purpose))
	return &VerifyOTPResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *OTPService) resolveUser(ctx context.Context, record *entity.OneTimeCode, variants []string) (*entity.User, error) {
	var (
		user *entity.User
		err  error
	)
	if record.UserID != nil {
		user, err = s.users.GetByID(ctx, *record.UserID)
	} else {
		user, err = s.users.GetByMobileNumber(ctx, variants)
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve otp user: %w", err)
	}
	return user, nil
}

func isOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// generateOTPCode returns a uniform code in [100000, 999999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpCodeMax-otpCodeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpCodeMin), nil
}
