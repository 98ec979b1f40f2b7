package verification

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/brizzai/signalbind/internal/config"
	"github.com/brizzai/signalbind/internal/numverify"
	"github.com/brizzai/signalbind/internal/receipt"
	"github.com/brizzai/signalbind/internal/telco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type fakeNumbers struct {
	result *numverify.Result
	err    error
	calls  int
}

func (f *fakeNumbers) Verify(_ context.Context, _ string) (*numverify.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeSimSwap struct {
	changed *time.Time
	err     error
	calls   int
}

func (f *fakeSimSwap) RetrieveDate(_ context.Context, _ string) (*time.Time, error) {
	f.calls++
	return f.changed, f.err
}

type fakeKYC struct {
	match   *telco.KYCMatch
	err     error
	calls   int
	lastRaw json.RawMessage
}

func (f *fakeKYC) Match(_ context.Context, _ string, kycData json.RawMessage) (*telco.KYCMatch, error) {
	f.calls++
	f.lastRaw = kycData
	return f.match, f.err
}

type fixture struct {
	numbers *fakeNumbers
	simSwap *fakeSimSwap
	kyc     *fakeKYC
	svc     *Service
}

func newFixture() *fixture {
	changed := now.Add(-40 * 24 * time.Hour)
	f := &fixture{
		numbers: &fakeNumbers{result: &numverify.Result{Verified: true}},
		simSwap: &fakeSimSwap{changed: &changed},
		kyc:     &fakeKYC{match: &telco.KYCMatch{Match: true, Confidence: 0.7}},
	}
	f.svc = NewService(f.numbers, f.simSwap, f.kyc, receipt.NewGenerator(1, func() time.Time { return now }))
	return f
}

func (f *fixture) upstreamCalls() int {
	return f.numbers.calls + f.simSwap.calls + f.kyc.calls
}

var receiptIDPattern = regexp.MustCompile(`^CR-\d+$`)

func TestVerifyMock(t *testing.T) {
	f := newFixture()

	r, err := f.svc.Verify(context.Background(), Request{PhoneNumber: "15551234567", MockMode: true})
	require.NoError(t, err)

	assert.Zero(t, f.upstreamCalls())
	assert.Regexp(t, receiptIDPattern, r.ReceiptID)
	assert.Equal(t, "15551234567", r.PhoneNumber)
	assert.True(t, *r.Verified)
	assert.Equal(t, 5, *r.DaysSinceSwap)
	assert.True(t, *r.SimSwapRisk)
	assert.Equal(t, receipt.ReasonRecentSimSwap, r.ReasonCode)
	assert.Equal(t, "2026-10-11T12:00:00.000Z", r.SimSwapDate)
	assert.True(t, *r.KYCMatch)
	assert.Equal(t, 0.95, *r.KYCConfidence)
	assert.Equal(t, "2026-10-16T12:00:00.000Z", r.Timestamp)
}

func TestVerifyLive(t *testing.T) {
	f := newFixture()
	f.kyc.match = &telco.KYCMatch{Match: false}
	kyc := json.RawMessage(`{"givenName":"Ada"}`)

	r, err := f.svc.Verify(context.Background(), Request{PhoneNumber: "15551234567", KYCData: kyc})
	require.NoError(t, err)

	assert.Equal(t, 1, f.simSwap.calls)
	assert.Equal(t, 1, f.numbers.calls)
	assert.Equal(t, 1, f.kyc.calls)
	assert.JSONEq(t, string(kyc), string(f.kyc.lastRaw))

	assert.True(t, *r.Verified)
	assert.Equal(t, 40, *r.DaysSinceSwap)
	assert.False(t, *r.SimSwapRisk)
	assert.Equal(t, receipt.ReasonSimStable, r.ReasonCode)
	assert.False(t, *r.KYCMatch)
	assert.Equal(t, 0.0, *r.KYCConfidence)
}

func TestVerifyNoSimChangeOnRecord(t *testing.T) {
	f := newFixture()
	f.simSwap.changed = nil

	r, err := f.svc.Verify(context.Background(), Request{PhoneNumber: "15551234567"})
	require.NoError(t, err)
	assert.Empty(t, r.SimSwapDate)
	assert.Nil(t, r.DaysSinceSwap)
	assert.False(t, *r.SimSwapRisk)
	assert.Equal(t, receipt.ReasonSimStable, r.ReasonCode)
}

func TestVerifyStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		setup       func(f *fixture)
		wantErr     error
		wantNumbers int
		wantKYC     int
	}{
		{
			name:    "sim swap",
			setup:   func(f *fixture) { f.simSwap.err = boom },
			wantErr: boom,
		},
		{
			name: "number verification",
			setup: func(f *fixture) {
				f.numbers.err = &numverify.StepError{Step: numverify.StepAuthCode, Err: numverify.ErrAuthorizationCodeMissing}
			},
			wantErr:     ErrVerification,
			wantNumbers: 1,
		},
		{
			name:        "kyc match",
			setup:       func(f *fixture) { f.kyc.err = boom },
			wantErr:     boom,
			wantNumbers: 1,
			wantKYC:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			r, err := f.svc.Verify(context.Background(), Request{PhoneNumber: "15551234567"})
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantNumbers, f.numbers.calls)
			assert.Equal(t, tt.wantKYC, f.kyc.calls)
		})
	}
}

func TestVerifyNumberErrorKeepsStep(t *testing.T) {
	f := newFixture()
	f.numbers.err = &numverify.StepError{Step: numverify.StepToken, Err: numverify.ErrTokenExchange}

	_, err := f.svc.VerifyNumber(context.Background(), Request{PhoneNumber: "15551234567"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerification)
	assert.ErrorIs(t, err, numverify.ErrTokenExchange)

	step, ok := numverify.FailedStep(err)
	assert.True(t, ok)
	assert.Equal(t, numverify.StepToken, step)
}

func TestVerifyNumber(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		f := newFixture()
		r, err := f.svc.VerifyNumber(context.Background(), Request{PhoneNumber: "15551234567", MockMode: true})
		require.NoError(t, err)

		assert.Zero(t, f.upstreamCalls())
		assert.False(t, *r.Verified)
		assert.Equal(t, "2025-09-20", r.RecycledSince)
		assert.Equal(t, receipt.ReasonSimRecycled, r.ReasonCode)
		assert.Regexp(t, receiptIDPattern, r.ReceiptID)
	})

	t.Run("live", func(t *testing.T) {
		f := newFixture()
		f.numbers.result = &numverify.Result{Verified: true, ReasonCode: "VERIFIED"}

		r, err := f.svc.VerifyNumber(context.Background(), Request{PhoneNumber: "15551234567"})
		require.NoError(t, err)
		assert.Equal(t, 1, f.numbers.calls)
		assert.True(t, *r.Verified)
		assert.Empty(t, r.RecycledSince)
		assert.Equal(t, "VERIFIED", r.ReasonCode)
		assert.Nil(t, r.SimSwapRisk)
		assert.Nil(t, r.KYCMatch)
	})
}

func TestCheckSimSwap(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		f := newFixture()
		r, err := f.svc.CheckSimSwap(context.Background(), Request{PhoneNumber: "15551234567", MockMode: true})
		require.NoError(t, err)

		assert.Zero(t, f.upstreamCalls())
		assert.Equal(t, "15551234567", r.PhoneNumber)
		assert.Equal(t, 5, *r.DaysSinceSwap)
		assert.Equal(t, receipt.ReasonRecentSimSwap, r.ReasonCode)
		assert.Nil(t, r.SimSwapRisk)
		assert.Nil(t, r.Verified)
	})

	t.Run("live stable", func(t *testing.T) {
		f := newFixture()
		r, err := f.svc.CheckSimSwap(context.Background(), Request{PhoneNumber: "15551234567"})
		require.NoError(t, err)

		assert.Equal(t, 1, f.simSwap.calls)
		assert.Equal(t, 40, *r.DaysSinceSwap)
		assert.Equal(t, receipt.ReasonSimStable, r.ReasonCode)
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture()
		f.simSwap.err = telco.ErrSimSwap
		_, err := f.svc.CheckSimSwap(context.Background(), Request{PhoneNumber: "15551234567"})
		assert.ErrorIs(t, err, telco.ErrSimSwap)
	})
}

func TestNewNumberVerifier(t *testing.T) {
	legacy := telco.NewLegacyClient(nil, config.LegacyConfig{})
	flow := numverify.NewFlow(numverify.FlowParams{})

	cfg := &config.Config{NumberVerification: config.NumberVerificationConfig{Provider: config.ProviderNokia}}
	assert.Same(t, legacy, NewNumberVerifier(cfg, flow, legacy))

	cfg.NumberVerification.Provider = config.ProviderCAMARA
	assert.IsType(t, flowVerifier{}, NewNumberVerifier(cfg, flow, legacy))
}
