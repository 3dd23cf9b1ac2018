package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	"github.com/yourusername/dealership-api/internal/domain/repository"
	"github.com/yourusername/dealership-api/internal/middleware"
	"github.com/yourusername/dealership-api/internal/service"
)

// LockTokenHeader carries the holder token of the caller's vehicle lock on
// write requests.
const LockTokenHeader = "X-Lock-Token"

// VehicleService manages inventory and sales.
type VehicleService interface {
	List(ctx context.Context, filter repository.VehicleFilter) (*service.VehiclePage, error)
	ListForExport(ctx context.Context, filter repository.VehicleFilter) ([]entity.Vehicle, error)
	Get(ctx context.Context, id uint) (*service.VehicleDetails, error)
	Create(ctx context.Context, in service.VehicleInput) (*entity.Vehicle, error)
	Update(ctx context.Context, id uint, lockToken string, in service.VehicleInput) (*entity.Vehicle, error)
	Reserve(ctx context.Context, id uint, lockToken string) (*entity.Vehicle, error)
	Unreserve(ctx context.Context, id uint, lockToken string) (*entity.Vehicle, error)
	MarkSold(ctx context.Context, id uint, lockToken string, sellerID uint, in service.MarkSoldInput) (*entity.Sale, error)
	GetSale(ctx context.Context, id uint) (*entity.Sale, error)
}

// VehicleHandler serves /api/vehicles.
type VehicleHandler struct {
	vehicles VehicleService
	logger   *zap.Logger
}

func NewVehicleHandler(vehicles VehicleService, logger *zap.Logger) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles, logger: namedLogger(logger, "vehicle_handler")}
}

type vehicleRequest struct {
	StockNumber    *string `json:"stockNumber"`
	Make           *string `json:"make"`
	Model          *string `json:"model"`
	Year           *int    `json:"year"`
	RegistrationNo *string `json:"registrationNo"`
	MileageKm      *int    `json:"mileageKm"`
	PriceLKR       *int64  `json:"priceLkr"`
	Description    *string `json:"description"`
}

func (r vehicleRequest) input() service.VehicleInput {
	return service.VehicleInput{
		StockNumber:    r.StockNumber,
		Make:           r.Make,
		Model:          r.Model,
		Year:           r.Year,
		RegistrationNo: r.RegistrationNo,
		MileageKm:      r.MileageKm,
		PriceLKR:       r.PriceLKR,
		Description:    r.Description,
	}
}

type markSoldRequest struct {
	CustomerName  string `json:"customerName" binding:"required"`
	CustomerPhone string `json:"customerPhone" binding:"required"`
	SalePriceLKR  int64  `json:"salePriceLkr" binding:"required"`
}

func filterFromQuery(c *gin.Context) repository.VehicleFilter {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return repository.VehicleFilter{
		Status: c.Query("status"),
		Make:   c.Query("make"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}
}

// List handles GET /api/vehicles?status=&make=&search=&limit=&offset=.
func (h *VehicleHandler) List(c *gin.Context) {
	page, err := h.vehicles.List(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /api/vehicles/:id. The response includes the current lock
// so the dashboard can show who is working on the vehicle.
func (h *VehicleHandler) Get(c *gin.Context) {
	details, err := h.vehicles.Get(c.Request.Context(), c.GetUint(ParamVehicleID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Create handles POST /api/vehicles.
func (h *VehicleHandler) Create(c *gin.Context) {
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.vehicles.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// Update handles PATCH /api/vehicles/:id.
func (h *VehicleHandler) Update(c *gin.Context) {
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.vehicles.Update(c.Request.Context(), c.GetUint(ParamVehicleID), c.GetHeader(LockTokenHeader), req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Reserve handles POST /api/vehicles/:id/reserve.
func (h *VehicleHandler) Reserve(c *gin.Context) {
	v, err := h.vehicles.Reserve(c.Request.Context(), c.GetUint(ParamVehicleID), c.GetHeader(LockTokenHeader))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Unreserve handles POST /api/vehicles/:id/unreserve.
func (h *VehicleHandler) Unreserve(c *gin.Context) {
	v, err := h.vehicles.Unreserve(c.Request.Context(), c.GetUint(ParamVehicleID), c.GetHeader(LockTokenHeader))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// MarkSold handles POST /api/vehicles/:id/sold.
func (h *VehicleHandler) MarkSold(c *gin.Context) {
	sellerID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req markSoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sale, err := h.vehicles.MarkSold(c.Request.Context(), c.GetUint(ParamVehicleID), c.GetHeader(LockTokenHeader), sellerID, service.MarkSoldInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		SalePriceLKR:  req.SalePriceLKR,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// GetSale handles GET /api/vehicles/:id/sale.
func (h *VehicleHandler) GetSale(c *gin.Context) {
	sale, err := h.vehicles.GetSale(c.Request.Context(), c.GetUint(ParamVehicleID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}
