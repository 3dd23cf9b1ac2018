package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/pkg/phone"
	"github.com/yourusername/dealership-api/internal/service"
)

// AuthService signs users in and recovers passwords.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*service.LoginResult, error)
	ForgotPassword(ctx context.Context, rawPhone string) (*service.IssueOTPResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	auth    AuthService
	otp     OTPService
	limiter RateChecker
	logger  *zap.Logger
}

func NewAuthHandler(auth AuthService, otp OTPService, limiter RateChecker, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, otp: otp, limiter: limiter, logger: namedLogger(logger, "auth_handler")}
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	MobileNumber string `json:"mobileNumber" binding:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// Login handles POST /api/auth/login. The per-IP limit is applied by the
// router.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       res.User,
	})
}

// ForgotPassword handles POST /api/auth/password/forgot.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	normalized, err := phone.Normalize(req.MobileNumber)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !allowRate(c, h.limiter, normalized, service.OTPSendPolicy()) {
		return
	}

	res, err := h.auth.ForgotPassword(c.Request.Context(), normalized)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "OTP sent successfully"
	if !res.Delivered {
		message = res.Warning
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "expiresIn": res.ExpiresIn})
}

// VerifyResetOTP handles POST /api/auth/password/verify and exchanges a
// password_reset code for the token ResetPassword expects.
func (h *AuthHandler) VerifyResetOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	normalized, err := phone.Normalize(req.MobileNumber)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !allowRate(c, h.limiter, normalized, service.OTPVerifyPolicy()) {
		return
	}

	res, err := h.otp.Verify(c.Request.Context(), normalized, req.OTP, entity.OTPPurposePasswordReset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP verified successfully", "token": res.Token})
}

// ResetPassword handles POST /api/auth/password/reset.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated"})
}
