package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/middleware"
	"github.com/yourusername/dealership-api/internal/service"
)

// LockService manages advisory vehicle locks.
type LockService interface {
	TryAcquire(ctx context.Context, vehicleID uint, holder service.LockHolder, lockType string, ttl time.Duration) (*entity.VehicleLock, error)
	Heartbeat(ctx context.Context, vehicleID uint, token string, ttl time.Duration) (*entity.VehicleLock, error)
	Release(ctx context.Context, vehicleID uint, token string) error
	List(ctx context.Context) ([]*entity.VehicleLock, error)
}

// LockHandler serves vehicle lock endpoints.
type LockHandler struct {
	locks    LockService
	users    UserService
	vehicles VehicleService
	logger   *zap.Logger
}

func NewLockHandler(locks LockService, users UserService, vehicles VehicleService, logger *zap.Logger) *LockHandler {
	return &LockHandler{locks: locks, users: users, vehicles: vehicles, logger: namedLogger(logger, "lock_handler")}
}

type acquireLockRequest struct {
	LockType   string `json:"lockType" binding:"required"`
	TTLSeconds int    `json:"ttlSeconds"`
}

type heartbeatRequest struct {
	TTLSeconds int `json:"ttlSeconds"`
}

// Acquire handles POST /api/vehicles/:id/lock. The response carries the
// holder token; later writes send it in X-Lock-Token.
func (h *LockHandler) Acquire(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req acquireLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	vehicleID := c.GetUint(ParamVehicleID)
	if _, err := h.vehicles.Get(ctx, vehicleID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	lock, err := h.locks.TryAcquire(ctx, vehicleID, service.LockHolder{ID: user.ID, Name: user.FullName},
		req.LockType, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, lock)
}

// Heartbeat handles PUT /api/vehicles/:id/lock.
func (h *LockHandler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	lock, err := h.locks.Heartbeat(c.Request.Context(), c.GetUint(ParamVehicleID), c.GetHeader(LockTokenHeader),
		time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, lock)
}

// Release handles DELETE /api/vehicles/:id/lock. It succeeds even when the
// lock is already gone.
func (h *LockHandler) Release(c *gin.Context) {
	if err := h.locks.Release(c.Request.Context(), c.GetUint(ParamVehicleID), c.GetHeader(LockTokenHeader)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /api/locks.
func (h *LockHandler) List(c *gin.Context) {
	locks, err := h.locks.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locks": locks})
}
