package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/freightlink/services/marketplace/internal/metrics"
	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/repository"
	"example.com/freightlink/services/marketplace/internal/service"
)

// ProposalsHandler handles proposal HTTP requests
type ProposalsHandler struct {
	proposals service.ProposalService
}

// NewProposalsHandler creates a new proposals handler
func NewProposalsHandler(proposals service.ProposalService) *ProposalsHandler {
	return &ProposalsHandler{proposals: proposals}
}

// RegisterRoutes registers proposal routes
func (h *ProposalsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/proposals", h.CreateProposal)
	rg.GET("/proposals", h.ListProposals)
	rg.GET("/proposals/:id", h.GetProposal)
	rg.POST("/proposals/:id/respond", h.RespondToProposal)
}

// CreateProposalRequest represents an incoming proposal request
type CreateProposalRequest struct {
	LoadID         string   `json:"load_id" binding:"required,uuid"`
	TruckID        string   `json:"truck_id" binding:"required,uuid"`
	Notes          string   `json:"notes"`
	ProposedRate   *float64 `json:"proposed_rate"`
	ExpiresInHours int      `json:"expires_in_hours"`
}

// CreateProposal proposes a truck for a load
func (h *ProposalsHandler) CreateProposal(c *gin.Context) {
	actor := actorFrom(c)

	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, NewValidationError(err.Error()))
		metrics.GetMetricsCollector().RecordError(metrics.ErrorTypeValidation)
		return
	}

	proposal, err := h.proposals.CreateProposal(c.Request.Context(), &service.CreateProposalRequest{
		LoadID:         req.LoadID,
		TruckID:        req.TruckID,
		Actor:          actor,
		Notes:          req.Notes,
		ProposedRate:   req.ProposedRate,
		ExpiresInHours: req.ExpiresInHours,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

// GetProposal fetches a single proposal
func (h *ProposalsHandler) GetProposal(c *gin.Context) {
	proposal, err := h.proposals.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// ListProposals lists proposals with optional filters
func (h *ProposalsHandler) ListProposals(c *gin.Context) {
	filter := repository.ProposalFilter{
		LoadID:    c.Query("load_id"),
		TruckID:   c.Query("truck_id"),
		CarrierID: c.Query("carrier_id"),
		Status:    model.ProposalStatusFromString(c.Query("status")),
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
	}
	proposals, err := h.proposals.ListProposals(c.Request.Context(), filter)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals, "count": len(proposals)})
}

// RespondToProposalRequest represents a carrier response
type RespondToProposalRequest struct {
	Action string `json:"action" binding:"required,oneof=ACCEPT REJECT"`
	Notes  string `json:"notes"`
}

// RespondToProposalResponse carries the settled proposal and, on acceptance,
// the resulting assignment
type RespondToProposalResponse struct {
	Proposal *model.MatchProposal `json:"proposal"`
	Load     *model.Load          `json:"load,omitempty"`
	Trip     *model.Trip          `json:"trip,omitempty"`
}

// RespondToProposal settles a PENDING proposal
func (h *ProposalsHandler) RespondToProposal(c *gin.Context) {
	actor := actorFrom(c)

	var req RespondToProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, NewValidationError(err.Error()))
		metrics.GetMetricsCollector().RecordError(metrics.ErrorTypeValidation)
		return
	}

	proposal, result, err := h.proposals.RespondToProposal(c.Request.Context(), &service.RespondToProposalRequest{
		ProposalID: c.Param("id"),
		Actor:      actor,
		Action:     service.RespondAction(req.Action),
		Notes:      req.Notes,
	})
	if err != nil {
		if service.IsConflict(err) {
			metrics.GetMetricsCollector().RecordError(metrics.ErrorTypeConflict)
		}
		WriteError(c, err)
		return
	}

	resp := RespondToProposalResponse{Proposal: proposal}
	if result != nil {
		resp.Load = result.Load
		resp.Trip = result.Trip
	}
	c.JSON(http.StatusOK, resp)
}
