package numverify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brizzai/signalbind/internal/logger"
	"go.uber.org/zap"
)

// errCallbackReached stops redirect following once the callback URL is the next hop.
var errCallbackReached = errors.New("callback reached")

// AuthCodeConfig configures the silent authorization request.
type AuthCodeConfig struct {
	RedirectURI  string
	State        string
	Scope        string
	MaxRedirects int
	Timeout      time.Duration
	// Transport is used for every hop; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// AuthCodeExtractor performs the operator-network authorization request and
// collects the authorization code from the redirect chain.
//
// Redirects are inspected hop by hop. The first hop that targets the configured
// redirect URI is not followed; its query carries the code. If no hop targets
// the redirect URI, the code is read from the final resolved URL.
type AuthCodeExtractor struct {
	cfg      AuthCodeConfig
	callback *url.URL
}

// NewAuthCodeExtractor validates cfg and creates an extractor.
func NewAuthCodeExtractor(cfg AuthCodeConfig) (*AuthCodeExtractor, error) {
	callback, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect uri: %w", err)
	}
	if !callback.IsAbs() {
		return nil, fmt.Errorf("redirect uri must be absolute: %q", cfg.RedirectURI)
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 10
	}
	return &AuthCodeExtractor{cfg: cfg, callback: callback}, nil
}

// AuthorizationURL builds the authorization request for clientID and phoneNumber.
func (e *AuthCodeExtractor) AuthorizationURL(endpoint, clientID, phoneNumber string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid authorization endpoint: %w", ErrAuthorizationRequest, err)
	}
	q := u.Query()
	q.Set("scope", e.cfg.Scope)
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", e.cfg.RedirectURI)
	q.Set("state", e.cfg.State)
	// Encodes as login_hint=%2B<number>
	q.Set("login_hint", E164(phoneNumber))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Extract follows the redirect chain started at authURL and returns the code.
func (e *AuthCodeExtractor) Extract(ctx context.Context, authURL string) (string, error) {
	var intercepted *url.URL
	hops := 0

	client := &http.Client{
		Transport: e.cfg.Transport,
		Timeout:   e.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			hops = len(via)
			if e.isCallback(req.URL) {
				intercepted = req.URL
				return http.ErrUseLastResponse
			}
			if len(via) > e.cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", e.cfg.MaxRedirects)
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthorizationRequest, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthorizationRequest, err)
	}
	// Any status is acceptable here, only the URL matters.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if err := resp.Body.Close(); err != nil {
		logger.Warn("failed to close authorization response body", zap.Error(err))
	}

	final := resp.Request.URL
	if intercepted != nil {
		final = intercepted
	}

	logger.Debug("authorization redirect chain resolved",
		zap.Int("hops", hops),
		zap.Bool("intercepted", intercepted != nil),
		zap.Int("status", resp.StatusCode),
		zap.String("final_host", final.Host),
	)

	return e.codeFrom(final)
}

func (e *AuthCodeExtractor) codeFrom(u *url.URL) (string, error) {
	q := u.Query()
	code := q.Get("code")
	if code == "" {
		if reason := q.Get("error"); reason != "" {
			return "", fmt.Errorf("%w: %s %s", ErrAuthorizationCodeMissing, reason, q.Get("error_description"))
		}
		return "", ErrAuthorizationCodeMissing
	}
	if state := q.Get("state"); state != "" && state != e.cfg.State {
		return "", ErrStateMismatch
	}
	return code, nil
}

func (e *AuthCodeExtractor) isCallback(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, e.callback.Scheme) &&
		strings.EqualFold(u.Host, e.callback.Host) &&
		strings.TrimSuffix(u.Path, "/") == strings.TrimSuffix(e.callback.Path, "/")
}
