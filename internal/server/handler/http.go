// Package handler provides the HTTP surface of the verification service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/brizzai/signalbind/internal/apispec"
	"github.com/brizzai/signalbind/internal/logger"
	"github.com/brizzai/signalbind/internal/receipt"
	"github.com/brizzai/signalbind/internal/utils"
	"github.com/brizzai/signalbind/internal/verification"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	maxBodySize = 64 << 10

	msgVerificationFailed = "Verification failed"
	msgInvalidRequest     = "Invalid request"
)

// Verifier is the verification service as seen by the handlers.
type Verifier interface {
	Verify(ctx context.Context, req verification.Request) (*receipt.ConsentReceipt, error)
	VerifyNumber(ctx context.Context, req verification.Request) (*receipt.ConsentReceipt, error)
	CheckSimSwap(ctx context.Context, req verification.Request) (*receipt.ConsentReceipt, error)
}

// RequestRecorder counts inbound requests.
type RequestRecorder interface {
	RecordHTTPRequest(route string, statusCode int)
}

// Handler manages HTTP request handling and middleware configuration.
type Handler struct {
	verifier Verifier
	spec     *apispec.Spec
	recorder RequestRecorder
	metrics  http.Handler
}

// NewHandler creates a new HTTP handler. recorder and metrics may be nil.
func NewHandler(verifier Verifier, spec *apispec.Spec, recorder RequestRecorder, metrics http.Handler) *Handler {
	return &Handler{
		verifier: verifier,
		spec:     spec,
		recorder: recorder,
		metrics:  metrics,
	}
}

// CreateHTTPHandler builds the router. mcpHandler is mounted on /mcp when non-nil.
func (h *Handler) CreateHTTPHandler(mcpHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(LoggingMiddleware(h.recorder))
	r.Use(CORS)

	r.Get("/health", h.HandleHealth)
	r.Get("/openapi.json", h.HandleOpenAPI)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/verify", func(r chi.Router) {
		r.Post("/", h.operation("/verify", h.verifier.Verify))
		r.Post("/number-verification", h.operation("/verify/number-verification", h.verifier.VerifyNumber))
		r.Post("/sim-swap", h.operation("/verify/sim-swap", h.verifier.CheckSimSwap))
		r.Get("/callback", h.HandleAuthCallback)
	})

	if mcpHandler != nil {
		r.Handle("/mcp", mcpHandler)
		r.Handle("/mcp/*", mcpHandler)
	}
	return r
}

type operationFunc func(ctx context.Context, req verification.Request) (*receipt.ConsentReceipt, error)

// operation decodes and validates the body for path and runs op. Any failure of
// op is reported as a generic 500.
func (h *Handler) operation(path string, op operationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, msgInvalidRequest)
			return
		}
		if h.spec != nil {
			if err := h.spec.ValidateRequestBody(path, body); err != nil {
				logger.Warn("Rejected request body", zap.String("path", path), zap.Error(err))
				utils.WriteError(w, http.StatusBadRequest, msgInvalidRequest)
				return
			}
		}

		var req verification.Request
		if err := json.Unmarshal(body, &req); err != nil {
			utils.WriteError(w, http.StatusBadRequest, msgInvalidRequest)
			return
		}

		rec, err := op(r.Context(), req)
		if err != nil {
			logger.Error("Verification error",
				zap.String("path", path),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.Bool("canceled", errors.Is(err, context.Canceled)),
				zap.Error(err),
			)
			utils.WriteError(w, http.StatusInternalServerError, msgVerificationFailed)
			return
		}
		utils.WriteJSON(w, http.StatusOK, rec)
	}
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleOpenAPI serves the embedded contract
func (h *Handler) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if h.spec == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(h.spec.JSON()); err != nil {
		logger.Error("Failed to write openapi document", zap.Error(err))
	}
}

// HandleAuthCallback is an inert redirect receiver. Pointing the redirect URI at
// it keeps the authorization code inside this deployment.
func (h *Handler) HandleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" {
		utils.WriteError(w, http.StatusBadRequest, "Code is required")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"code":  code,
		"state": state,
	})
}
