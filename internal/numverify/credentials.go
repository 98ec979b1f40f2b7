package numverify

import (
	"context"
	"fmt"

	"github.com/brizzai/signalbind/internal/requester"
)

// CredentialBootstrapper exchanges the gateway API key for a client id/secret pair.
type CredentialBootstrapper struct {
	exec requester.Executor
	auth requester.AuthManager
	url  string
}

// NewCredentialBootstrapper creates a bootstrapper calling url with the gateway headers.
func NewCredentialBootstrapper(exec requester.Executor, auth requester.AuthManager, url string) *CredentialBootstrapper {
	return &CredentialBootstrapper{exec: exec, auth: auth, url: url}
}

// Bootstrap fetches a fresh ClientCredentials.
func (b *CredentialBootstrapper) Bootstrap(ctx context.Context) (*ClientCredentials, error) {
	var body struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := b.exec.GetJSON(ctx, "client_credentials", b.url, b.auth, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
	}
	if body.ClientID == "" {
		return nil, fmt.Errorf("%w: response has no client_id", ErrCredentials)
	}
	return &ClientCredentials{
		ClientID:     body.ClientID,
		ClientSecret: body.ClientSecret,
	}, nil
}
