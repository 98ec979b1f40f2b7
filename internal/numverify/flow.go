// Package numverify implements the number verification handshake:
// client credential bootstrap, metadata discovery, silent authorization,
// token exchange and the verification call, run strictly in that order.
package numverify

import (
	"context"
	"time"

	"github.com/brizzai/signalbind/internal/logger"
	"go.uber.org/zap"
)

// StepObserver is notified after every handshake step.
type StepObserver interface {
	ObserveStep(step string, err error, duration time.Duration)
}

// Flow chains the five handshake steps. Every Run starts from scratch unless a
// SessionCache is configured, in which case steps one and two may be reused.
type Flow struct {
	bootstrapper *CredentialBootstrapper
	resolver     *MetadataResolver
	extractor    *AuthCodeExtractor
	exchanger    *TokenExchanger
	caller       *VerificationCaller
	cache        *SessionCache
	cacheKey     string
	observer     StepObserver
}

// FlowParams groups the Flow dependencies.
type FlowParams struct {
	Bootstrapper *CredentialBootstrapper
	Resolver     *MetadataResolver
	Extractor    *AuthCodeExtractor
	Exchanger    *TokenExchanger
	Caller       *VerificationCaller
	Cache        *SessionCache
	CacheKey     string
	Observer     StepObserver
}

func NewFlow(p FlowParams) *Flow {
	return &Flow{
		bootstrapper: p.Bootstrapper,
		resolver:     p.Resolver,
		extractor:    p.Extractor,
		exchanger:    p.Exchanger,
		caller:       p.Caller,
		cache:        p.Cache,
		cacheKey:     p.CacheKey,
		observer:     p.Observer,
	}
}

// Run performs the handshake for phoneNumber. Any failing step aborts the run
// with a *StepError; no partial result is returned.
func (f *Flow) Run(ctx context.Context, phoneNumber string) (*Result, error) {
	session, err := f.session(ctx)
	if err != nil {
		return nil, err
	}

	result, err := f.authorizeAndVerify(ctx, session, phoneNumber)
	if err != nil {
		// A cached session may be the reason; the next run starts over.
		f.cache.Invalidate(f.cacheKey)
		return nil, err
	}
	return result, nil
}

func (f *Flow) session(ctx context.Context) (*Session, error) {
	if cached, ok := f.cache.Get(f.cacheKey); ok {
		logger.Debug("reusing cached verification session")
		return &cached, nil
	}

	var creds *ClientCredentials
	if err := f.step(StepBootstrap, func() (err error) {
		creds, err = f.bootstrapper.Bootstrap(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var md *ProviderMetadata
	if err := f.step(StepMetadata, func() (err error) {
		md, err = f.resolver.Resolve(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	session := Session{Credentials: *creds, Metadata: *md}
	f.cache.Set(f.cacheKey, session)
	return &session, nil
}

func (f *Flow) authorizeAndVerify(ctx context.Context, session *Session, phoneNumber string) (*Result, error) {
	var code string
	if err := f.step(StepAuthCode, func() error {
		authURL, err := f.extractor.AuthorizationURL(session.Metadata.AuthorizationEndpoint, session.Credentials.ClientID, phoneNumber)
		if err != nil {
			return err
		}
		code, err = f.extractor.Extract(ctx, authURL)
		return err
	}); err != nil {
		return nil, err
	}

	var token string
	if err := f.step(StepToken, func() (err error) {
		token, err = f.exchanger.Exchange(ctx, &session.Metadata, &session.Credentials, code)
		return err
	}); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := f.step(StepVerify, func() (err error) {
		raw, err = f.caller.Verify(ctx, token, phoneNumber)
		return err
	}); err != nil {
		return nil, err
	}

	return ParseResult(raw), nil
}

func (f *Flow) step(step Step, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if f.observer != nil {
		f.observer.ObserveStep(string(step), err, duration)
	}
	if err != nil {
		logger.Error("number verification step failed",
			zap.String("step", string(step)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return &StepError{Step: step, Err: err}
	}
	logger.Debug("number verification step completed",
		zap.String("step", string(step)),
		zap.Duration("duration", duration),
	)
	return nil
}
