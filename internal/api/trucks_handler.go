package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/freightlink/services/marketplace/internal/metrics"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/service"
)

// TrucksHandler handles truck posting HTTP requests
type TrucksHandler struct {
	trucks service.TruckService
}

// NewTrucksHandler creates a new trucks handler
func NewTrucksHandler(trucks service.TruckService) *TrucksHandler {
	return &TrucksHandler{trucks: trucks}
}

// RegisterRoutes registers truck routes
func (h *TrucksHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/trucks", h.CreatePosting)
	rg.GET("/trucks", h.ListTrucks)
	rg.GET("/trucks/:id", h.GetPosting)
	rg.PATCH("/trucks/:id/status", h.UpdatePostingStatus)
}

// CreatePostingRequest represents an incoming truck capacity posting
type CreatePostingRequest struct {
	CurrentCity     string     `json:"current_city" binding:"required"`
	CurrentLat      *float64   `json:"current_lat"`
	CurrentLon      *float64   `json:"current_lon"`
	DestinationCity string     `json:"destination_city"`
	DestinationLat  *float64   `json:"destination_lat"`
	DestinationLon  *float64   `json:"destination_lon"`
	TruckType       string     `json:"truck_type" binding:"omitempty,trucktype"`
	MaxWeightKg     float64    `json:"max_weight_kg" binding:"required,gt=0"`
	LengthM         *float64   `json:"length_m"`
	Mode            string     `json:"mode" binding:"omitempty,loadmode"`
	AvailableFrom   time.Time  `json:"available_from" binding:"required"`
	AvailableUntil  *time.Time `json:"available_until"`
	HasGPSDevice    bool       `json:"has_gps_device"`
}

// CreatePosting posts new truck capacity
func (h *TrucksHandler) CreatePosting(c *gin.Context) {
	actor := actorFrom(c)

	var req CreatePostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, NewValidationError(err.Error()))
		metrics.GetMetricsCollector().RecordError(metrics.ErrorTypeValidation)
		return
	}

	posting, err := h.trucks.CreatePosting(c.Request.Context(), &service.CreatePostingRequest{
		CarrierID:       actor.ID,
		CurrentCity:     req.CurrentCity,
		CurrentLat:      req.CurrentLat,
		CurrentLon:      req.CurrentLon,
		DestinationCity: req.DestinationCity,
		DestinationLat:  req.DestinationLat,
		DestinationLon:  req.DestinationLon,
		TruckType:       model.TruckType(req.TruckType),
		MaxWeightKg:     req.MaxWeightKg,
		LengthM:         req.LengthM,
		Mode:            model.LoadMode(req.Mode),
		AvailableFrom:   req.AvailableFrom,
		AvailableUntil:  req.AvailableUntil,
		HasGPSDevice:    req.HasGPSDevice,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, posting)
}

// GetPosting fetches a single truck posting
func (h *TrucksHandler) GetPosting(c *gin.Context) {
	posting, err := h.trucks.GetPosting(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, posting)
}

// ListTrucks lists truck postings, by carrier or all active
func (h *TrucksHandler) ListTrucks(c *gin.Context) {
	if carrierID := c.Query("carrier_id"); carrierID != "" {
		postings, err := h.trucks.ListByCarrier(c.Request.Context(), carrierID)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"trucks": postings, "count": len(postings)})
		return
	}

	postings, err := h.trucks.ListActive(c.Request.Context(), intQuery(c, "limit", 50))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trucks": postings, "count": len(postings)})
}

// UpdatePostingStatusRequest toggles a posting's availability
type UpdatePostingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdatePostingStatus toggles a posting between ACTIVE and INACTIVE
func (h *TrucksHandler) UpdatePostingStatus(c *gin.Context) {
	var req UpdatePostingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, NewValidationError(err.Error()))
		return
	}

	posting, err := h.trucks.UpdatePostingStatus(c.Request.Context(), c.Param("id"), model.TruckStatus(req.Status))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, posting)
}
