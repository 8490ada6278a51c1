package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/internal/service"
)

// WalletClient runs the advisory balance pre-check against the wallet service
type WalletClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

// NewWalletClient creates a new wallet client
func NewWalletClient(baseURL string, timeout time.Duration, log *logrus.Logger) *WalletClient {
	return &WalletClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
		log:        log,
	}
}

type balanceCheckRequest struct {
	LoadID    string `json:"load_id"`
	CarrierID string `json:"carrier_id"`
}

// ValidateBalancesForTrip asks the wallet service whether both parties can
// cover the platform fees for this trip. No funds move here.
func (c *WalletClient) ValidateBalancesForTrip(ctx context.Context, loadID, carrierID string) (*service.BalanceCheck, error) {
	url := fmt.Sprintf("%s/api/v1/balances/validate-trip", c.baseURL)
	req := &balanceCheckRequest{LoadID: loadID, CarrierID: carrierID}

	var check service.BalanceCheck
	if err := doJSON(ctx, c.httpClient, http.MethodPost, url, req, &check); err != nil {
		return nil, err
	}
	return &check, nil
}
