package numverify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brizzai/signalbind/internal/config"
	"github.com/brizzai/signalbind/internal/requester"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey       = "test-key"
	testClientID     = "client-123"
	testClientSecret = "secret-456"
	testCode         = "code-789"
	testToken        = "token-abc"
	testState        = "App-state"
)

// fakeGateway serves every endpoint of the handshake. authorize decides where
// the authorization endpoint redirects to.
type fakeGateway struct {
	*httptest.Server

	authorize func(w http.ResponseWriter, r *http.Request)
	verify    func(w http.ResponseWriter, r *http.Request)

	credentialCalls atomic.Int32
	discoveryCalls  atomic.Int32
	authorizeCalls  atomic.Int32
	callbackCalls   atomic.Int32
	tokenCalls      atomic.Int32
	verifyCalls     atomic.Int32

	lastLoginHint atomic.Value
	lastVerify    atomic.Value
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	gw := &fakeGateway{}
	gw.authorize = gw.redirectToCallback
	gw.verify = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"devicePhoneNumberVerified": true})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /credentials", func(w http.ResponseWriter, r *http.Request) {
		gw.credentialCalls.Add(1)
		if r.Header.Get(requester.HeaderAPIKey) != testAPIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid key"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"client_id":     testClientID,
			"client_secret": testClientSecret,
		})
	})
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		gw.discoveryCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                 "https://upstream.example.com",
			"authorization_endpoint": gw.URL + "/authorize",
			"token_endpoint":         gw.URL + "/token",
			"jwks_uri":               gw.URL + "/jwks",
		})
	})
	mux.HandleFunc("GET /authorize", func(w http.ResponseWriter, r *http.Request) {
		gw.authorizeCalls.Add(1)
		gw.lastLoginHint.Store(r.URL.Query().Get("login_hint"))
		gw.authorize(w, r)
	})
	mux.HandleFunc("GET /hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, gw.URL+"/callback?"+r.URL.RawQuery, http.StatusFound)
	})
	mux.HandleFunc("GET /loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, gw.URL+"/loop", http.StatusFound)
	})
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		gw.callbackCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /landing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		gw.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil ||
			r.PostForm.Get("grant_type") != "authorization_code" ||
			r.PostForm.Get("code") != testCode ||
			r.PostForm.Get("client_id") != testClientID ||
			r.PostForm.Get("client_secret") != testClientSecret {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": testToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		gw.verifyCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad token"})
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gw.lastVerify.Store(body)
		gw.verify(w, r)
	})

	gw.Server = httptest.NewServer(mux)
	t.Cleanup(gw.Close)
	return gw
}

// redirectToCallback sends the code through an intermediate hop to the callback.
func (gw *fakeGateway) redirectToCallback(w http.ResponseWriter, r *http.Request) {
	q := url.Values{}
	q.Set("code", testCode)
	q.Set("state", r.URL.Query().Get("state"))
	http.Redirect(w, r, gw.URL+"/hop?"+q.Encode(), http.StatusFound)
}

func (gw *fakeGateway) config() *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{
			BaseURL:                gw.URL,
			Host:                   "gateway.test",
			APIKey:                 testAPIKey,
			Timeout:                5 * time.Second,
			CredentialsPath:        "/credentials",
			NumberVerificationPath: "/verify",
		},
		NumberVerification: config.NumberVerificationConfig{
			Provider:     config.ProviderCAMARA,
			RedirectURI:  gw.URL + "/callback",
			State:        testState,
			Scope:        "number-verification:verify",
			MaxRedirects: 10,
		},
	}
}

type stepRecord struct {
	step string
	err  error
}

type recordingStepObserver struct {
	steps []stepRecord
}

func (o *recordingStepObserver) ObserveStep(step string, err error, _ time.Duration) {
	o.steps = append(o.steps, stepRecord{step: step, err: err})
}

func newTestFlow(t *testing.T, cfg *config.Config, observer StepObserver) *Flow {
	t.Helper()
	req := requester.NewHTTPRequester(requester.HTTPRequesterParams{Gateway: &cfg.Gateway})
	flow, err := New(Params{
		Config:    cfg,
		Requester: req,
		Auth:      requester.NewHTTPAuthManager(&cfg.Gateway),
		Observer:  observer,
	})
	require.NoError(t, err)
	return flow
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
