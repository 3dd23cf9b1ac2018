package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// UsageAccess marks dashboard session tokens. Verification tokens carry the
// OTP purpose instead.
const UsageAccess = "access"

var (
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenUsage     = errors.New("token usage mismatch")
)

// JWTCustomClaims holds the application fields of every token.
type JWTCustomClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role,omitempty"`
	Usage  string `json:"usage"`
	jwt.RegisteredClaims
}

// JWTService issues and checks HS256 tokens.
type JWTService struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

// NewJWTService creates a JWT service. accessTTL defaults to 12h.
func NewJWTService(secret, issuer string, accessTTL time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	return &JWTService{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
		now:       time.Now,
	}, nil
}

// GenerateAccessToken issues a dashboard session token.
func (s *JWTService) GenerateAccessToken(userID uint, role string) (string, time.Time, error) {
	return s.sign(userID, role, UsageAccess, s.accessTTL)
}

// GenerateVerificationToken issues a short-lived token proving the holder
// verified an OTP for purpose.
func (s *JWTService) GenerateVerificationToken(userID uint, purpose string, ttl time.Duration) (string, time.Time, error) {
	if purpose == "" || purpose == UsageAccess {
		return "", time.Time{}, fmt.Errorf("invalid verification purpose %q", purpose)
	}
	return s.sign(userID, "", purpose, ttl)
}

// ParseAccessToken validates a session token.
func (s *JWTService) ParseAccessToken(tokenString string) (*JWTCustomClaims, error) {
	return s.parse(tokenString, UsageAccess)
}

// ParseVerificationToken validates a verification token issued for purpose.
func (s *JWTService) ParseVerificationToken(tokenString, purpose string) (*JWTCustomClaims, error) {
	return s.parse(tokenString, purpose)
}

func (s *JWTService) sign(userID uint, role, usage string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := &JWTCustomClaims{
		UserID: userID,
		Role:   role,
		Usage:  usage,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *JWTService) parse(tokenString, usage string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	parser := jwt.Parser{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, ErrTokenExpired
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Usage != usage {
		return nil, ErrTokenUsage
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
