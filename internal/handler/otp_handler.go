package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/middleware"
	"github.com/yourusername/dealership-api/internal/pkg/phone"
	"github.com/yourusername/dealership-api/internal/service"
)

// OTPService issues and verifies SMS codes.
type OTPService interface {
	Issue(ctx context.Context, in service.IssueOTPInput) (*service.IssueOTPResult, error)
	Verify(ctx context.Context, rawPhone, code, purpose string) (*service.VerifyOTPResult, error)
}

// RateChecker counts one request against a policy.
type RateChecker interface {
	Check(ctx context.Context, identifier string, cfg service.RateLimitConfig) service.RateLimitResult
}

// OTPHandler serves /api/otp.
type OTPHandler struct {
	otp     OTPService
	limiter RateChecker
	logger  *zap.Logger
}

func NewOTPHandler(otp OTPService, limiter RateChecker, logger *zap.Logger) *OTPHandler {
	return &OTPHandler{otp: otp, limiter: limiter, logger: namedLogger(logger, "otp_handler")}
}

type sendOTPRequest struct {
	UserID       *uint  `json:"userId"`
	MobileNumber string `json:"mobileNumber" binding:"required"`
}

type verifyOTPRequest struct {
	MobileNumber string `json:"mobileNumber" binding:"required"`
	OTP          string `json:"otp" binding:"required"`
}

// SendOTP handles POST /api/otp/send.
func (h *OTPHandler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
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
	if req.UserID != nil && !allowRate(c, h.limiter, strconv.FormatUint(uint64(*req.UserID), 10), service.SMSPolicy()) {
		return
	}

	res, err := h.otp.Issue(c.Request.Context(), service.IssueOTPInput{
		UserID:      req.UserID,
		PhoneNumber: normalized,
		Purpose:     entity.OTPPurposeVerification,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "OTP sent successfully"
	if !res.Delivered {
		message = res.Warning
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   message,
		"expiresIn": res.ExpiresIn,
	})
}

// VerifyOTP handles POST /api/otp/verify.
func (h *OTPHandler) VerifyOTP(c *gin.Context) {
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

	res, err := h.otp.Verify(c.Request.Context(), normalized, req.OTP, entity.OTPPurposeVerification)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP verified successfully",
		"token":   res.Token,
	})
}

// allowRate checks identifier against policy and writes the 429 itself.
func allowRate(c *gin.Context, limiter RateChecker, identifier string, policy service.RateLimitConfig) bool {
	res := limiter.Check(c.Request.Context(), identifier, policy)
	middleware.SetRateLimitHeaders(c, res)
	if !res.Allowed {
		middleware.AbortRateLimited(c, res)
		return false
	}
	return true
}
