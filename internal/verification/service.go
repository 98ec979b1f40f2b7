// Package verification combines the telco signals into consent receipts.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brizzai/signalbind/internal/config"
	"github.com/brizzai/signalbind/internal/logger"
	"github.com/brizzai/signalbind/internal/numverify"
	"github.com/brizzai/signalbind/internal/receipt"
	"github.com/brizzai/signalbind/internal/telco"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrVerification is the generic error surfaced for any number verification failure.
var ErrVerification = errors.New("telco verification error")

const (
	mockSimSwapAge     = 5 * 24 * time.Hour
	mockKYCConfidence  = 0.95
	mockRecycledSince  = "2025-09-20"
	mockNumberVerified = false
)

// Request is the input shared by all verification operations.
type Request struct {
	PhoneNumber string          `json:"phoneNumber"`
	MockMode    bool            `json:"mockMode,omitempty"`
	KYCData     json.RawMessage `json:"kycData,omitempty"`
}

// NumberVerifier runs a number verification against one provider.
type NumberVerifier interface {
	Verify(ctx context.Context, phoneNumber string) (*numverify.Result, error)
}

// SimSwapRetriever returns the latest SIM change for a number.
type SimSwapRetriever interface {
	RetrieveDate(ctx context.Context, phoneNumber string) (*time.Time, error)
}

// KYCMatcher matches identity attributes for a number.
type KYCMatcher interface {
	Match(ctx context.Context, phoneNumber string, kycData json.RawMessage) (*telco.KYCMatch, error)
}

// Service implements the three verification operations. In mock mode no
// upstream is contacted.
type Service struct {
	numbers   NumberVerifier
	simSwap   SimSwapRetriever
	kyc       KYCMatcher
	generator *receipt.Generator
}

func NewService(numbers NumberVerifier, simSwap SimSwapRetriever, kyc KYCMatcher, generator *receipt.Generator) *Service {
	return &Service{
		numbers:   numbers,
		simSwap:   simSwap,
		kyc:       kyc,
		generator: generator,
	}
}

// Verify runs SIM swap, number verification and KYC match in that order and
// returns the combined receipt. The first failure aborts the request.
func (s *Service) Verify(ctx context.Context, req Request) (*receipt.ConsentReceipt, error) {
	assessment, err := s.assessSimSwap(ctx, req)
	if err != nil {
		return nil, err
	}

	verified := true
	if !req.MockMode {
		res, err := s.verifyNumber(ctx, req.PhoneNumber)
		if err != nil {
			return nil, err
		}
		verified = res.Verified
	}

	match := &telco.KYCMatch{Match: true, Confidence: mockKYCConfidence}
	if !req.MockMode {
		if match, err = s.kyc.Match(ctx, req.PhoneNumber, req.KYCData); err != nil {
			return nil, err
		}
	}

	r := s.generator.New()
	r.PhoneNumber = req.PhoneNumber
	r.Verified = receipt.Bool(verified)
	r.ApplySimSwap(assessment)
	r.KYCMatch = receipt.Bool(match.Match)
	r.KYCConfidence = &match.Confidence

	logger.Info("consent receipt issued",
		zap.String("receipt_id", r.ReceiptID),
		logger.PhoneNumber(req.PhoneNumber),
		zap.Bool("mock", req.MockMode),
		zap.Bool("verified", verified),
		zap.Bool("sim_swap_risk", assessment.Risk),
		zap.Bool("kyc_match", match.Match),
	)
	return r, nil
}

// VerifyNumber runs only the number verification.
func (s *Service) VerifyNumber(ctx context.Context, req Request) (*receipt.ConsentReceipt, error) {
	res := &numverify.Result{
		Verified:      mockNumberVerified,
		RecycledSince: mockRecycledSince,
		ReasonCode:    receipt.ReasonSimRecycled,
	}
	if !req.MockMode {
		var err error
		if res, err = s.verifyNumber(ctx, req.PhoneNumber); err != nil {
			return nil, err
		}
	}

	r := s.generator.New()
	r.Verified = receipt.Bool(res.Verified)
	r.RecycledSince = res.RecycledSince
	r.ReasonCode = res.ReasonCode
	return r, nil
}

// CheckSimSwap runs only the SIM swap retrieval.
func (s *Service) CheckSimSwap(ctx context.Context, req Request) (*receipt.ConsentReceipt, error) {
	assessment, err := s.assessSimSwap(ctx, req)
	if err != nil {
		return nil, err
	}

	r := s.generator.New()
	r.PhoneNumber = req.PhoneNumber
	r.ApplySimSwap(assessment)
	// This receipt reports the reason code only.
	r.SimSwapRisk = nil
	return r, nil
}

func (s *Service) assessSimSwap(ctx context.Context, req Request) (receipt.SimSwapAssessment, error) {
	now := s.generator.Now()
	if req.MockMode {
		changed := now.Add(-mockSimSwapAge)
		return receipt.AssessSimSwap(&changed, now), nil
	}
	changed, err := s.simSwap.RetrieveDate(ctx, req.PhoneNumber)
	if err != nil {
		return receipt.SimSwapAssessment{}, err
	}
	return receipt.AssessSimSwap(changed, now), nil
}

func (s *Service) verifyNumber(ctx context.Context, phoneNumber string) (*numverify.Result, error) {
	res, err := s.numbers.Verify(ctx, phoneNumber)
	if err != nil {
		step, _ := numverify.FailedStep(err)
		logger.Error("Number verification failed",
			logger.PhoneNumber(phoneNumber),
			zap.String("step", string(step)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return res, nil
}

// flowVerifier adapts the CAMARA handshake to NumberVerifier.
type flowVerifier struct {
	flow *numverify.Flow
}

func (f flowVerifier) Verify(ctx context.Context, phoneNumber string) (*numverify.Result, error) {
	return f.flow.Run(ctx, phoneNumber)
}

// NewNumberVerifier selects the configured number verification provider.
func NewNumberVerifier(cfg *config.Config, flow *numverify.Flow, legacy *telco.LegacyClient) NumberVerifier {
	if cfg.NumberVerification.Provider == config.ProviderNokia {
		return legacy
	}
	return flowVerifier{flow: flow}
}

// Module provides the verification service
var Module = fx.Module("verification",
	fx.Provide(
		NewNumberVerifier,
		func() *receipt.Generator { return receipt.NewGenerator(1, nil) },
		func(n NumberVerifier, s *telco.SimSwapClient, k *telco.KYCClient, g *receipt.Generator) *Service {
			return NewService(n, s, k, g)
		},
	),
)
