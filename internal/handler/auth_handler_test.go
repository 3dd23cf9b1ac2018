package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/service"
)

func newAuthHandler() (*AuthHandler, *MockAuthService, *MockOTPService) {
	authSvc := new(MockAuthService)
	otp := new(MockOTPService)
	return NewAuthHandler(authSvc, otp, newLimiter(), zap.NewNop()), authSvc, otp
}

func TestLogin(t *testing.T) {
	h, authSvc, _ := newAuthHandler()
	expires := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	authSvc.On("Login", mock.Anything, "admin@dealer.lk", "correct-horse").Return(&service.LoginResult{
		Token:     "access.jwt",
		ExpiresAt: expires,
		User:      &entity.User{ID: 1, FullName: "Admin", Role: entity.RoleAdmin},
	}, nil)
	authSvc.On("Login", mock.Anything, "admin@dealer.lk", "wrong").Return(nil, service.ErrBadCredentials)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": "admin@dealer.lk",
		"password":   "correct-horse",
	})
	h.Login(c)
	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "access.jwt", resp["token"])
	assert.Equal(t, "admin", resp["user"].(map[string]interface{})["role"])
	assert.NotContains(t, resp["user"], "password")

	c, w = newTestGinContext(http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": "admin@dealer.lk",
		"password":   "wrong",
	})
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestGinContext(http.MethodPost, "/api/auth/login", map[string]string{"identifier": "x"})
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForgotPassword(t *testing.T) {
	h, authSvc, _ := newAuthHandler()
	authSvc.On("ForgotPassword", mock.Anything, "94771234567").Return(&service.IssueOTPResult{ExpiresIn: 900, Delivered: true}, nil)
	authSvc.On("ForgotPassword", mock.Anything, "94711111111").Return(nil, service.ErrUserNotFound)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/password/forgot", map[string]string{"mobileNumber": "0771234567"})
	h.ForgotPassword(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 900, parseJSONResponse(t, w)["expiresIn"])

	c, w = newTestGinContext(http.MethodPost, "/api/auth/password/forgot", map[string]string{"mobileNumber": "0711111111"})
	h.ForgotPassword(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyResetOTP_UsesPasswordResetPurpose(t *testing.T) {
	h, _, otp := newAuthHandler()
	otp.On("Verify", mock.Anything, "94771234567", "654321", entity.OTPPurposePasswordReset).
		Return(&service.VerifyOTPResult{Token: "reset.jwt"}, nil)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/password/verify", map[string]string{
		"mobileNumber": "0771234567",
		"otp":          "654321",
	})
	h.VerifyResetOTP(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reset.jwt", parseJSONResponse(t, w)["token"])
	otp.AssertExpectations(t)
}

func TestResetPassword(t *testing.T) {
	h, authSvc, _ := newAuthHandler()
	authSvc.On("ResetPassword", mock.Anything, "reset.jwt", "new-password-1").Return(nil)
	authSvc.On("ResetPassword", mock.Anything, "stale.jwt", "new-password-1").Return(service.ErrBadCredentials)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/password/reset", map[string]string{
		"token":       "reset.jwt",
		"newPassword": "new-password-1",
	})
	h.ResetPassword(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestGinContext(http.MethodPost, "/api/auth/password/reset", map[string]string{
		"token":       "stale.jwt",
		"newPassword": "new-password-1",
	})
	h.ResetPassword(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
