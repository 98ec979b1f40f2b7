package numverify

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// TokenExchanger trades an authorization code for an access token.
type TokenExchanger struct {
	client *http.Client
}

// NewTokenExchanger creates an exchanger; a nil client uses http.DefaultClient.
func NewTokenExchanger(client *http.Client) *TokenExchanger {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenExchanger{client: client}
}

// Exchange posts client_id, client_secret, grant_type and code as a form to the
// token endpoint and returns the access token.
func (t *TokenExchanger) Exchange(ctx context.Context, md *ProviderMetadata, creds *ClientCredentials, code string) (string, error) {
	cfg := oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   md.AuthorizationEndpoint,
			TokenURL:  md.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.client)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrTokenExchange)
	}
	return token.AccessToken, nil
}
