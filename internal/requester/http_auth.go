package requester

import (
	"errors"
	"net/http"

	"github.com/brizzai/signalbind/internal/config"
)

const (
	// HeaderAPIKey carries the RapidAPI subscription key
	HeaderAPIKey = "X-RapidAPI-Key"
	// HeaderAPIHost identifies the RapidAPI application
	HeaderAPIHost = "X-RapidAPI-Host"
)

// ErrMissingGatewayKey is returned when a gateway call is attempted without an API key.
var ErrMissingGatewayKey = errors.New("gateway api key is not configured")

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// AuthFunc adapts a function to the AuthManager interface
type AuthFunc func(req *http.Request) error

// ApplyAuth calls f(req)
func (f AuthFunc) ApplyAuth(req *http.Request) error {
	return f(req)
}

// NoAuth leaves the request untouched
var NoAuth AuthManager = AuthFunc(func(*http.Request) error { return nil })

// HTTPAuthManager adds the RapidAPI gateway headers
type HTTPAuthManager struct {
	apiKey string
	host   string
}

// NewHTTPAuthManager creates a new HTTPAuthManager
func NewHTTPAuthManager(gateway *config.GatewayConfig) *HTTPAuthManager {
	return &HTTPAuthManager{
		apiKey: gateway.APIKey,
		host:   gateway.Host,
	}
}

// ApplyAuth adds the API key and host headers to the request
func (a *HTTPAuthManager) ApplyAuth(req *http.Request) error {
	if a.apiKey == "" {
		return ErrMissingGatewayKey
	}
	req.Header.Set(HeaderAPIKey, a.apiKey)
	if a.host != "" {
		req.Header.Set(HeaderAPIHost, a.host)
	}
	return nil
}

// WithBearer returns an AuthManager that applies base and then a bearer token.
func WithBearer(base AuthManager, token string) AuthManager {
	return AuthFunc(func(req *http.Request) error {
		if base != nil {
			if err := base.ApplyAuth(req); err != nil {
				return err
			}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	})
}

// Transport returns a RoundTripper applying auth to every outgoing request.
// The request is cloned before headers are set, as RoundTrippers must not mutate it.
func Transport(base http.RoundTripper, auth AuthManager) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		clone := req.Clone(req.Context())
		if err := auth.ApplyAuth(clone); err != nil {
			return nil, err
		}
		return base.RoundTrip(clone)
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
