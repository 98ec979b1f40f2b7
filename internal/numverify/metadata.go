package numverify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/brizzai/signalbind/internal/requester"
	"github.com/coreos/go-oidc/v3/oidc"
)

// MetadataResolver reads the authorization and token endpoints from the
// gateway's OpenID discovery document.
type MetadataResolver struct {
	issuer string
	client *http.Client
}

// NewMetadataResolver creates a resolver for issuer. The discovery document is
// fetched from issuer + "/.well-known/openid-configuration" with auth applied.
func NewMetadataResolver(issuer string, base *http.Client, auth requester.AuthManager) *MetadataResolver {
	client := &http.Client{Transport: requester.Transport(nil, auth)}
	if base != nil {
		client.Timeout = base.Timeout
		client.Transport = requester.Transport(base.Transport, auth)
	}
	return &MetadataResolver{issuer: issuer, client: client}
}

// Resolve fetches the discovery document. Nothing is cached here.
func (r *MetadataResolver) Resolve(ctx context.Context) (*ProviderMetadata, error) {
	ctx = oidc.ClientContext(ctx, r.client)
	// The gateway proxies the document, so the issuer it reports is the upstream one.
	ctx = oidc.InsecureIssuerURLContext(ctx, r.issuer)

	provider, err := oidc.NewProvider(ctx, r.issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
	}

	endpoint := provider.Endpoint()
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		return nil, fmt.Errorf("%w: discovery document lacks authorization or token endpoint", ErrMetadata)
	}

	return &ProviderMetadata{
		AuthorizationEndpoint: endpoint.AuthURL,
		TokenEndpoint:         endpoint.TokenURL,
	}, nil
}
