package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/freightlink/services/marketplace/internal/metrics"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
	"example.com/freightlink/services/marketplace/internal/service"
)

// LoadsHandler handles load-related HTTP requests
type LoadsHandler struct {
	loads    service.LoadService
	matching service.MatchingService
}

// NewLoadsHandler creates a new loads handler
func NewLoadsHandler(loads service.LoadService, matching service.MatchingService) *LoadsHandler {
	return &LoadsHandler{loads: loads, matching: matching}
}

// RegisterRoutes registers load routes
func (h *LoadsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/loads", h.CreateLoad)
	rg.GET("/loads", h.ListLoads)
	rg.GET("/loads/:id", h.GetLoad)
	rg.PATCH("/loads/:id/status", h.UpdateLoadStatus)
	rg.GET("/loads/:id/events", h.ListLoadEvents)
	rg.GET("/loads/:id/matches", h.FindMatches)
}

// CreateLoadRequest represents an incoming load posting
type CreateLoadRequest struct {
	PickupCity   string    `json:"pickup_city" binding:"required"`
	PickupLat    *float64  `json:"pickup_lat"`
	PickupLon    *float64  `json:"pickup_lon"`
	DeliveryCity string    `json:"delivery_city" binding:"required"`
	DeliveryLat  *float64  `json:"delivery_lat"`
	DeliveryLon  *float64  `json:"delivery_lon"`
	PickupDate   time.Time `json:"pickup_date" binding:"required"`
	DeliveryDate time.Time `json:"delivery_date" binding:"required"`
	TruckType    string    `json:"truck_type" binding:"omitempty,trucktype"`
	WeightKg     float64   `json:"weight_kg" binding:"required,gt=0"`
	LengthM      *float64  `json:"length_m"`
	Mode         string    `json:"mode" binding:"omitempty,loadmode"`
}

// CreateLoad posts a new load
func (h *LoadsHandler) CreateLoad(c *gin.Context) {
	actor := actorFrom(c)

	var req CreateLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, NewValidationError(err.Error()))
		metrics.GetMetricsCollector().RecordError(metrics.ErrorTypeValidation)
		return
	}

	load, err := h.loads.CreateLoad(c.Request.Context(), &service.CreateLoadRequest{
		ShipperID:    actor.ID,
		PickupCity:   req.PickupCity,
		PickupLat:    req.PickupLat,
		PickupLon:    req.PickupLon,
		DeliveryCity: req.DeliveryCity,
		DeliveryLat:  req.DeliveryLat,
		DeliveryLon:  req.DeliveryLon,
		PickupDate:   req.PickupDate,
		DeliveryDate: req.DeliveryDate,
		TruckType:    model.TruckType(req.TruckType),
		WeightKg:     req.WeightKg,
		LengthM:      req.LengthM,
		Mode:         model.LoadMode(req.Mode),
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, load)
}

// GetLoad fetches a single load
func (h *LoadsHandler) GetLoad(c *gin.Context) {
	load, err := h.loads.GetLoad(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, load)
}

// ListLoads lists loads with optional filters
func (h *LoadsHandler) ListLoads(c *gin.Context) {
	filter := repository.LoadFilter{
		ShipperID: c.Query("shipper_id"),
		Status:    model.LoadStatusFromString(c.Query("status")),
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
	}
	loads, err := h.loads.ListLoads(c.Request.Context(), filter)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loads": loads, "count": len(loads)})
}

// UpdateLoadStatusRequest represents a status transition request
type UpdateLoadStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// UpdateLoadStatus moves a load through its state machine
func (h *LoadsHandler) UpdateLoadStatus(c *gin.Context) {
	actor := actorFrom(c)

	var req UpdateLoadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, NewValidationError(err.Error()))
		return
	}

	target := model.LoadStatusFromString(req.Status)
	if target == "" {
		WriteError(c, NewValidationError("unknown status "+req.Status))
		return
	}

	load, err := h.loads.UpdateLoadStatus(c.Request.Context(), &service.UpdateLoadStatusRequest{
		LoadID: c.Param("id"),
		Target: target,
		Actor:  actor,
		Reason: req.Reason,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, load)
}

// ListLoadEvents returns the audit trail for a load
func (h *LoadsHandler) ListLoadEvents(c *gin.Context) {
	events, err := h.loads.ListLoadEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// FindMatches ranks candidate trucks for a load
func (h *LoadsHandler) FindMatches(c *gin.Context) {
	opts := service.FindOptions{
		Limit:           intQuery(c, "limit", 0),
		UseRoadDistance: c.Query("road_distance") == "true",
	}
	if raw := c.Query("min_score"); raw != "" {
		minScore, err := strconv.Atoi(raw)
		if err != nil || minScore < 0 || minScore > 100 {
			WriteError(c, NewValidationError("min_score must be an integer between 0 and 100"))
			return
		}
		opts.MinScore = &minScore
	}

	matches, err := h.matching.FindMatchingTrucksForLoad(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches, "count": len(matches)})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
