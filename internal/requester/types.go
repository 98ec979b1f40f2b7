package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request represents a fully built HTTP request
type Request struct {
	// Name labels the upstream call in logs and metrics, e.g. "sim_swap".
	Name        string
	URL         string
	Method      string
	Body        io.Reader
	Headers     map[string]string
	ContentType string
	HttpRequest *http.Request // The actual HTTP request
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// IsSuccess reports whether the upstream answered with a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Name       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Name, e.StatusCode)
}

// Observer receives the outcome of every upstream call.
type Observer interface {
	ObserveUpstream(name string, statusCode int, duration time.Duration)
}

// Executor performs gateway requests.
type Executor interface {
	GetJSON(ctx context.Context, name, url string, auth AuthManager, out any) error
	PostJSON(ctx context.Context, name, url string, body any, auth AuthManager, headers map[string]string, out any) error
}
