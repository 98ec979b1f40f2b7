package telco

import (
	"context"
	"fmt"
	"time"

	"github.com/brizzai/signalbind/internal/logger"
	"github.com/brizzai/signalbind/internal/requester"
	"go.uber.org/zap"
)

// SimSwapClient retrieves the date of the latest SIM change for a number.
type SimSwapClient struct {
	exec requester.Executor
	auth requester.AuthManager
	url  string
}

func NewSimSwapClient(exec requester.Executor, auth requester.AuthManager, url string) *SimSwapClient {
	return &SimSwapClient{exec: exec, auth: auth, url: url}
}

// RetrieveDate returns the latest SIM change. A nil time means the network has
// no SIM change on record for the number.
func (c *SimSwapClient) RetrieveDate(ctx context.Context, phoneNumber string) (*time.Time, error) {
	var body struct {
		LatestSimChange *string `json:"latestSimChange"`
	}
	req := map[string]string{"phoneNumber": phoneNumber}
	if err := c.exec.PostJSON(ctx, "sim_swap", c.url, req, c.auth, nil, &body); err != nil {
		logger.Error("SIM swap API error", logger.PhoneNumber(phoneNumber), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSimSwap, err)
	}

	if body.LatestSimChange == nil || *body.LatestSimChange == "" {
		return nil, nil
	}
	changed, err := time.Parse(time.RFC3339Nano, *body.LatestSimChange)
	if err != nil {
		logger.Error("SIM swap API returned an unparseable date", zap.String("latest_sim_change", *body.LatestSimChange))
		return nil, fmt.Errorf("%w: %w", ErrSimSwap, err)
	}
	return &changed, nil
}
