package numverify

import (
	"context"
	"net/http"

	"github.com/brizzai/signalbind/internal/config"
	"github.com/brizzai/signalbind/internal/requester"
	"go.uber.org/fx"
)

// Params holds what New needs to assemble a Flow.
type Params struct {
	fx.In

	Config    *config.Config
	Requester *requester.HTTPRequester
	Auth      requester.AuthManager
	Observer  StepObserver `optional:"true"`
}

// New wires the handshake components from configuration.
func New(p Params) (*Flow, error) {
	gw := p.Config.Gateway
	nv := p.Config.NumberVerification
	client := p.Requester.Client()

	extractor, err := NewAuthCodeExtractor(AuthCodeConfig{
		RedirectURI:  nv.RedirectURI,
		State:        nv.State,
		Scope:        nv.Scope,
		MaxRedirects: nv.MaxRedirects,
		Timeout:      client.Timeout,
		Transport:    client.Transport,
	})
	if err != nil {
		return nil, err
	}

	return NewFlow(FlowParams{
		Bootstrapper: NewCredentialBootstrapper(p.Requester, p.Auth, gw.URL(gw.CredentialsPath)),
		Resolver:     NewMetadataResolver(gw.BaseURL, client, p.Auth),
		Extractor:    extractor,
		Exchanger:    NewTokenExchanger(&http.Client{Timeout: client.Timeout, Transport: client.Transport}),
		Caller:       NewVerificationCaller(p.Requester, p.Auth, gw.URL(gw.NumberVerificationPath)),
		Cache:        NewSessionCache(nv.SessionCacheTTL),
		CacheKey:     gw.URL(gw.CredentialsPath),
		Observer:     p.Observer,
	}), nil
}

// registerCache ties the session cache expiry loop to the application lifecycle.
func registerCache(lc fx.Lifecycle, f *Flow) {
	if f.cache == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go f.cache.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			f.cache.Stop()
			return nil
		},
	})
}

// Module provides the number verification flow
var Module = fx.Module("numverify",
	fx.Provide(New),
	fx.Invoke(registerCache),
)
