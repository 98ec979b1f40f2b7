package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPRequestBuilder builds gateway requests with a JSON body
type HTTPRequestBuilder struct {
	authMgr AuthManager
	headers map[string]string
}

// NewHTTPRequestBuilder creates a new HTTPRequestBuilder. auth may be nil.
func NewHTTPRequestBuilder(auth AuthManager, headers map[string]string) *HTTPRequestBuilder {
	if auth == nil {
		auth = NoAuth
	}
	return &HTTPRequestBuilder{
		authMgr: auth,
		headers: headers,
	}
}

// BuildRequest builds a request for the given method and URL. A non-nil body is encoded as JSON.
func (b *HTTPRequestBuilder) BuildRequest(ctx context.Context, name, method, url string, body any) (*Request, error) {
	reqBody, contentType, err := b.createRequestBody(body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	for key, value := range b.headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if err := b.authMgr.ApplyAuth(httpReq); err != nil {
		return nil, fmt.Errorf("failed to apply authentication: %w", err)
	}

	return &Request{
		Name:        name,
		URL:         url,
		Method:      method,
		Body:        reqBody,
		Headers:     b.headers,
		ContentType: contentType,
		HttpRequest: httpReq,
	}, nil
}

func (b *HTTPRequestBuilder) createRequestBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return bytes.NewReader(raw), "application/json", nil
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(jsonData), "application/json", nil
}
