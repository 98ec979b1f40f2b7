// Package telco wraps the single-call CAMARA passthrough APIs and the legacy
// direct Nokia verification endpoints.
package telco

import (
	"errors"

	"github.com/brizzai/signalbind/internal/config"
	"github.com/brizzai/signalbind/internal/requester"
	"go.uber.org/fx"
)

var (
	ErrSimSwap            = errors.New("SIM swap retrieval failed")
	ErrKYCMatch           = errors.New("KYC match failed")
	ErrLegacyVerification = errors.New("legacy number verification failed")
)

// Module provides the telco API clients
var Module = fx.Module("telco",
	fx.Provide(
		func(cfg *config.Config, exec requester.Executor, auth requester.AuthManager) *SimSwapClient {
			return NewSimSwapClient(exec, auth, cfg.Gateway.URL(cfg.Gateway.SimSwapPath))
		},
		func(cfg *config.Config, exec requester.Executor, auth requester.AuthManager) *KYCClient {
			return NewKYCClient(exec, auth, cfg.Gateway.URL(cfg.Gateway.KYCMatchPath))
		},
		func(cfg *config.Config, exec requester.Executor) *LegacyClient {
			return NewLegacyClient(exec, cfg.Legacy)
		},
	),
)
