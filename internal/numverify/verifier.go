package numverify

import (
	"context"
	"fmt"

	"github.com/brizzai/signalbind/internal/requester"
)

// VerificationCaller posts the phone number to the verification endpoint.
type VerificationCaller struct {
	exec requester.Executor
	auth requester.AuthManager
	url  string
}

// NewVerificationCaller creates a caller for url using the gateway auth.
func NewVerificationCaller(exec requester.Executor, auth requester.AuthManager, url string) *VerificationCaller {
	return &VerificationCaller{exec: exec, auth: auth, url: url}
}

// Verify calls the endpoint with token and returns the raw provider payload.
func (c *VerificationCaller) Verify(ctx context.Context, token, phoneNumber string) (map[string]any, error) {
	body := map[string]string{"phoneNumber": E164(phoneNumber)}

	var out map[string]any
	if err := c.exec.PostJSON(ctx, "number_verification", c.url, body, requester.WithBearer(c.auth, token), nil, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerificationCall, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
