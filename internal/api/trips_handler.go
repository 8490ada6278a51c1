package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/freightlink/services/marketplace/internal/service"
)

// TripsHandler handles trip HTTP requests
type TripsHandler struct {
	trips service.TripService
}

// NewTripsHandler creates a new trips handler
func NewTripsHandler(trips service.TripService) *TripsHandler {
	return &TripsHandler{trips: trips}
}

// RegisterRoutes registers trip routes
func (h *TripsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/trips/:id", h.GetTrip)
	rg.GET("/loads/:id/trip", h.GetTripByLoad)
}

// GetTrip fetches a single trip
func (h *TripsHandler) GetTrip(c *gin.Context) {
	trip, err := h.trips.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// GetTripByLoad fetches the trip for a load
func (h *TripsHandler) GetTripByLoad(c *gin.Context) {
	trip, err := h.trips.GetTripByLoad(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}
