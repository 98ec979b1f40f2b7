// Package tool exposes the verification operations as MCP tools.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brizzai/signalbind/internal/logger"
	"github.com/brizzai/signalbind/internal/receipt"
	"github.com/brizzai/signalbind/internal/verification"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const (
	ToolVerifyConsent = "verify_consent"
	ToolVerifyNumber  = "verify_number"
	ToolCheckSimSwap  = "check_sim_swap"

	argPhoneNumber = "phoneNumber"
	argMockMode    = "mockMode"
	argKYCData     = "kycData"
)

// Verifier is the verification service as seen by the tools.
type Verifier interface {
	Verify(ctx context.Context, req verification.Request) (*receipt.ConsentReceipt, error)
	VerifyNumber(ctx context.Context, req verification.Request) (*receipt.ConsentReceipt, error)
	CheckSimSwap(ctx context.Context, req verification.Request) (*receipt.ConsentReceipt, error)
}

// ToolHandlerFunc matches the mcp-go tool handler signature.
type ToolHandlerFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Registration pairs a tool definition with its handler.
type Registration struct {
	Tool    mcp.Tool
	Handler ToolHandlerFunc
}

// Handler manages tool execution.
type Handler struct {
	verifier Verifier
}

// NewHandler creates a new tool handler.
func NewHandler(verifier Verifier) *Handler {
	return &Handler{verifier: verifier}
}

// Tools returns the three verification tools.
func (h *Handler) Tools() []Registration {
	phone := mcp.WithString(argPhoneNumber,
		mcp.Required(),
		mcp.Description("Phone number to verify, digits with an optional leading +"),
		mcp.Pattern(`^\+?[0-9]+$`),
	)
	mock := mcp.WithBoolean(argMockMode,
		mcp.Description("Return fixed sample values without contacting the operator"),
	)

	return []Registration{
		{
			Tool: mcp.NewTool(ToolVerifyConsent,
				mcp.WithDescription("Run SIM swap, number verification and KYC match and return a consent receipt"),
				phone,
				mock,
				mcp.WithObject(argKYCData,
					mcp.Description("Identity attributes forwarded to the KYC match"),
				),
			),
			Handler: h.CreateHandler(ToolVerifyConsent, h.verifier.Verify),
		},
		{
			Tool: mcp.NewTool(ToolVerifyNumber,
				mcp.WithDescription("Check that the phone number belongs to the device's SIM"),
				phone,
				mock,
			),
			Handler: h.CreateHandler(ToolVerifyNumber, h.verifier.VerifyNumber),
		},
		{
			Tool: mcp.NewTool(ToolCheckSimSwap,
				mcp.WithDescription("Report the latest SIM change for the phone number"),
				phone,
				mock,
			),
			Handler: h.CreateHandler(ToolCheckSimSwap, h.verifier.CheckSimSwap),
		},
	}
}

type operationFunc func(ctx context.Context, req verification.Request) (*receipt.ConsentReceipt, error)

// CreateHandler creates a handler function for a specific tool.
func (h *Handler) CreateHandler(name string, op operationFunc) ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := requestFromArguments(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		rec, err := op(ctx, req)
		if err != nil {
			logger.Error("Tool call failed", zap.String("tool", name), zap.Error(err))
			return mcp.NewToolResultError("Verification failed"), nil
		}

		body, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode receipt for tool %s: %w", name, err)
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func requestFromArguments(args map[string]any) (verification.Request, error) {
	var req verification.Request

	phone, ok := args[argPhoneNumber].(string)
	if !ok || phone == "" {
		return req, fmt.Errorf("%s is required", argPhoneNumber)
	}
	req.PhoneNumber = phone

	if raw, present := args[argMockMode]; present {
		mock, ok := raw.(bool)
		if !ok {
			return req, fmt.Errorf("%s must be a boolean", argMockMode)
		}
		req.MockMode = mock
	}

	if raw, present := args[argKYCData]; present && raw != nil {
		obj, ok := raw.(map[string]any)
		if !ok {
			return req, fmt.Errorf("%s must be an object", argKYCData)
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return req, fmt.Errorf("invalid %s: %w", argKYCData, err)
		}
		req.KYCData = data
	}
	return req, nil
}
