package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/service"
)

// IAMClient checks actor capabilities against the identity service
type IAMClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

// NewIAMClient creates a new IAM client
func NewIAMClient(baseURL string, timeout time.Duration, log *logrus.Logger) *IAMClient {
	return &IAMClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
		log:        log,
	}
}

type capabilityRequest struct {
	UserID          string `json:"user_id"`
	Role            string `json:"role"`
	Action          string `json:"action"`
	ResourceOwnerID string `json:"resource_owner_id,omitempty"`
}

type capabilityResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// HasCapability asks the identity service whether the actor may perform the
// action. Admin roles short-circuit locally; all other checks go upstream.
func (c *IAMClient) HasCapability(ctx context.Context, actor service.Actor, action service.Capability, resourceOwnerID string) (bool, error) {
	switch actor.Role {
	case model.RoleAdmin, model.RoleSuperAdmin:
		return true, nil
	}

	// Responding is ownership-scoped; answer locally when the owner is known.
	if action == service.CapRespondProposal && resourceOwnerID != "" {
		return actor.ID == resourceOwnerID, nil
	}

	url := fmt.Sprintf("%s/api/v1/capabilities/check", c.baseURL)
	req := &capabilityRequest{
		UserID:          actor.ID,
		Role:            string(actor.Role),
		Action:          string(action),
		ResourceOwnerID: resourceOwnerID,
	}

	var resp capabilityResponse
	if err := doJSON(ctx, c.httpClient, http.MethodPost, url, req, &resp); err != nil {
		return false, err
	}
	if !resp.Allowed {
		c.log.WithFields(logrus.Fields{
			"user_id": actor.ID,
			"action":  string(action),
			"reason":  resp.Reason,
		}).Info("Capability denied")
	}
	return resp.Allowed, nil
}
