package telco

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/brizzai/signalbind/internal/config"
	"github.com/brizzai/signalbind/internal/logger"
	"github.com/brizzai/signalbind/internal/numverify"
	"github.com/brizzai/signalbind/internal/requester"
	"go.uber.org/zap"
)

// LegacyClient talks to the direct Nokia API that predates the CAMARA passthrough.
type LegacyClient struct {
	exec    requester.Executor
	auth    requester.AuthManager
	baseURL string
}

func NewLegacyClient(exec requester.Executor, cfg config.LegacyConfig) *LegacyClient {
	auth := requester.AuthFunc(func(req *http.Request) error {
		if cfg.APIKey == "" {
			return fmt.Errorf("NOKIA_API_KEY is not configured")
		}
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		return nil
	})
	return &LegacyClient{
		exec:    exec,
		auth:    auth,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// Verify checks ownership and recycling of phoneNumber with two sequential calls.
func (c *LegacyClient) Verify(ctx context.Context, phoneNumber string) (*numverify.Result, error) {
	req := map[string]string{"phoneNumber": phoneNumber}

	var verify map[string]any
	if err := c.exec.PostJSON(ctx, "legacy_verify", c.baseURL+"/verify", req, c.auth, nil, &verify); err != nil {
		logger.Error("legacy verify call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrLegacyVerification, err)
	}

	var recycle struct {
		RecycledSince string `json:"recycledSince"`
	}
	if err := c.exec.PostJSON(ctx, "legacy_recycle", c.baseURL+"/recycle", req, c.auth, nil, &recycle); err != nil {
		logger.Error("legacy recycle call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrLegacyVerification, err)
	}

	verified, _ := verify["verified"].(bool)
	reason := "UNVERIFIED"
	if verified {
		reason = "VERIFIED"
	}
	return &numverify.Result{
		Verified:      verified,
		RecycledSince: recycle.RecycledSince,
		ReasonCode:    reason,
		Raw:           verify,
	}, nil
}
