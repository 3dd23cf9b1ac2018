package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/middleware"
	"github.com/yourusername/dealership-api/internal/service"
)

// UserService manages dashboard users.
type UserService interface {
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	List(ctx context.Context, page, pageSize int) (*service.UserPage, error)
	Create(ctx context.Context, in service.CreateUserInput) (*entity.User, error)
	Update(ctx context.Context, actorID, id uint, in service.UpdateUserInput) (*entity.User, error)
}

// UserHandler serves /api/users.
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: namedLogger(logger, "user_handler")}
}

type createUserRequest struct {
	FullName     string `json:"fullName" binding:"required"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Role         string `json:"role" binding:"required"`
}

type updateUserRequest struct {
	FullName *string `json:"fullName"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// List handles GET /api/users?page=&page_size=.
func (h *UserHandler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 {
		pageSize = 20
	}

	res, err := h.users.List(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Create handles POST /api/users.
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Create(c.Request.Context(), service.CreateUserInput{
		FullName:     req.FullName,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Password:     req.Password,
		Role:         req.Role,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Update handles PATCH /api/users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Update(c.Request.Context(), actorID, c.GetUint(ParamUserID), service.UpdateUserInput{
		FullName: req.FullName,
		Role:     req.Role,
		Active:   req.Active,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
