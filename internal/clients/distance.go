package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DistanceClient fetches road distances from the routing service
type DistanceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDistanceClient creates a new distance client
func NewDistanceClient(baseURL string, timeout time.Duration) *DistanceClient {
	return &DistanceClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
	}
}

type distanceResponse struct {
	DistanceKm float64 `json:"distance_km"`
}

// RoadDistanceKm returns the road distance between two coordinates
func (c *DistanceClient) RoadDistanceKm(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (float64, error) {
	url := fmt.Sprintf("%s/api/v1/distance?from_lat=%f&from_lon=%f&to_lat=%f&to_lon=%f",
		c.baseURL, fromLat, fromLon, toLat, toLon)

	var resp distanceResponse
	if err := doJSON(ctx, c.httpClient, http.MethodGet, url, nil, &resp); err != nil {
		return 0, err
	}
	return resp.DistanceKm, nil
}
