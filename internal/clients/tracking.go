package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// TrackingClient enables GPS tracking for assigned loads via the telematics
// service
type TrackingClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

// NewTrackingClient creates a new tracking client
func NewTrackingClient(baseURL string, timeout time.Duration, log *logrus.Logger) *TrackingClient {
	return &TrackingClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
		log:        log,
	}
}

type enableTrackingRequest struct {
	LoadID  string `json:"load_id"`
	TruckID string `json:"truck_id"`
}

type enableTrackingResponse struct {
	TrackingURL string `json:"tracking_url"`
}

// EnableTrackingForLoad registers the load with the telematics service and
// returns the public tracking URL
func (c *TrackingClient) EnableTrackingForLoad(ctx context.Context, loadID, truckID string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/tracking/enable", c.baseURL)
	req := &enableTrackingRequest{LoadID: loadID, TruckID: truckID}

	var resp enableTrackingResponse
	if err := doJSON(ctx, c.httpClient, http.MethodPost, url, req, &resp); err != nil {
		return "", err
	}
	c.log.WithFields(logrus.Fields{
		"load_id":  loadID,
		"truck_id": truckID,
	}).Info("GPS tracking enabled")
	return resp.TrackingURL, nil
}
