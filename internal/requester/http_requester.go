package requester

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/signalbind/internal/config"
	"github.com/brizzai/signalbind/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// maxResponseSize bounds how much of an upstream body is read
const maxResponseSize = 1 << 20

// HTTPRequester executes requests against the telco gateway
type HTTPRequester struct {
	client   *http.Client
	observer Observer
}

type HTTPRequesterParams struct {
	fx.In

	Gateway  *config.GatewayConfig
	Observer Observer `optional:"true"`
}

// NewHTTPRequester creates a new HTTPRequester using the gateway timeout
func NewHTTPRequester(params HTTPRequesterParams) *HTTPRequester {
	timeout := 30 * time.Second
	if params.Gateway != nil && params.Gateway.Timeout > 0 {
		timeout = params.Gateway.Timeout
	}
	return &HTTPRequester{
		client: &http.Client{
			Timeout: timeout,
		},
		observer: params.Observer,
	}
}

// SetTimeout sets the timeout for the HTTP client
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.client.Timeout = timeout
}

// Client returns the underlying HTTP client
func (r *HTTPRequester) Client() *http.Client {
	return r.client
}

// GetJSON performs a GET and decodes a 2xx JSON response into out
func (r *HTTPRequester) GetJSON(ctx context.Context, name, url string, auth AuthManager, out any) error {
	req, err := NewHTTPRequestBuilder(auth, nil).BuildRequest(ctx, name, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return r.executeJSON(req, out)
}

// PostJSON performs a POST with a JSON body and decodes a 2xx JSON response into out
func (r *HTTPRequester) PostJSON(ctx context.Context, name, url string, body any, auth AuthManager, headers map[string]string, out any) error {
	req, err := NewHTTPRequestBuilder(auth, headers).BuildRequest(ctx, name, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	return r.executeJSON(req, out)
}

func (r *HTTPRequester) executeJSON(req *Request, out any) error {
	resp, err := r.Execute(req)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return &StatusError{Name: req.Name, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", req.Name, err)
	}
	return nil
}

// Execute performs the actual HTTP request execution
func (r *HTTPRequester) Execute(req *Request) (*Response, error) {
	start := time.Now()
	logger.Debug("upstream request",
		zap.String("name", req.Name),
		zap.String("method", req.Method),
		zap.String("url", req.URL),
	)

	resp, err := r.client.Do(req.HttpRequest)
	if err != nil {
		r.observe(req.Name, 0, time.Since(start))
		return nil, fmt.Errorf("%s: request failed: %w", req.Name, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("failed to close response body", zap.String("name", req.Name), zap.Error(closeErr))
		}
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	r.observe(req.Name, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response body: %w", req.Name, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
		Headers:    resp.Header,
	}, nil
}

func (r *HTTPRequester) observe(name string, status int, d time.Duration) {
	if r.observer != nil {
		r.observer.ObserveUpstream(name, status, d)
	}
}
