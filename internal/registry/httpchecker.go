// ABOUTME: HTTP premium checker querying the remote entitlement service
// ABOUTME: Network failures return an error so the registry keeps its cached snapshot

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/coven-assist/internal/model"
)

const checkerTimeout = 15 * time.Second

// HTTPPremiumChecker queries premium entitlement over HTTP.
type HTTPPremiumChecker struct {
	statusURL string
	client    *http.Client
	logger    *slog.Logger
}

// NewHTTPPremiumChecker creates a checker against the given status endpoint.
// Pass nil client for a default with a 15s timeout.
func NewHTTPPremiumChecker(statusURL string, client *http.Client, logger *slog.Logger) *HTTPPremiumChecker {
	if client == nil {
		client = &http.Client{Timeout: checkerTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPPremiumChecker{
		statusURL: statusURL,
		client:    client,
		logger:    logger.With("component", "premium-checker"),
	}
}

type premiumStatusResponse struct {
	State                string     `json:"state"`
	RemainingCredentials int        `json:"remaining_credentials"`
	NextRenewal          *time.Time `json:"next_renewal,omitempty"`
}

// CheckPremiumStatus fetches the caller's current entitlement.
func (c *HTTPPremiumChecker) CheckPremiumStatus(ctx context.Context) (model.PremiumState, *PremiumInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL, nil)
	if err != nil {
		return model.PremiumUnknown, nil, fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return model.PremiumUnknown, nil, fmt.Errorf("premium service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.PremiumUnknown, nil, fmt.Errorf("premium service returned status %d", resp.StatusCode)
	}

	var body premiumStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.PremiumUnknown, nil, fmt.Errorf("failed to decode premium status: %w", err)
	}

	state := parsePremiumState(body.State)
	info := &PremiumInfo{
		RemainingCredentials: body.RemainingCredentials,
		NextRenewal:          body.NextRenewal,
	}
	return state, info, nil
}

func parsePremiumState(s string) model.PremiumState {
	switch s {
	case "active":
		return model.PremiumActive
	case "inactive":
		return model.PremiumInactive
	default:
		return model.PremiumUnknown
	}
}
