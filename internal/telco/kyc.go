package telco

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brizzai/signalbind/internal/logger"
	"github.com/brizzai/signalbind/internal/requester"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KYCMatch is the outcome of an identity attribute match.
type KYCMatch struct {
	Match      bool
	Confidence float64
}

// KYCClient submits identity attributes to the KYC match API.
type KYCClient struct {
	exec requester.Executor
	auth requester.AuthManager
	url  string
	// newCorrelator is swapped in tests.
	newCorrelator func() string
}

func NewKYCClient(exec requester.Executor, auth requester.AuthManager, url string) *KYCClient {
	return &KYCClient{exec: exec, auth: auth, url: url, newCorrelator: uuid.NewString}
}

// Match posts kycData as-is. When kycData is empty only the phone number is sent.
// A missing confidenceScore is reported as 0.
func (c *KYCClient) Match(ctx context.Context, phoneNumber string, kycData json.RawMessage) (*KYCMatch, error) {
	var reqBody any = kycData
	if len(kycData) == 0 || string(kycData) == "null" {
		reqBody = map[string]string{"phoneNumber": phoneNumber}
	}

	correlator := c.newCorrelator()
	var body struct {
		Match           bool     `json:"match"`
		ConfidenceScore *float64 `json:"confidenceScore"`
	}
	headers := map[string]string{"x-correlator": correlator}
	if err := c.exec.PostJSON(ctx, "kyc_match", c.url, reqBody, c.auth, headers, &body); err != nil {
		logger.Error("KYC Match API error", zap.String("correlator", correlator), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrKYCMatch, err)
	}

	result := &KYCMatch{Match: body.Match}
	if body.ConfidenceScore != nil {
		result.Confidence = *body.ConfidenceScore
	}
	return result, nil
}
