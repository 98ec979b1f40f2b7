package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RAPIDAPI_KEY", "NOKIA_API_KEY", "PORT", "SIGNALBIND_GATEWAY_API_KEY", "SIGNALBIND_SERVER_PORT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAPIDAPI_KEY", "rk")

	cfg, err := Load(newFlagSet(t))
	require.NoError(t, err)

	assert.Equal(t, "rk", cfg.Gateway.APIKey)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ServerModeHTTP, cfg.Server.Mode)
	assert.Equal(t, "network-as-code.nokia.rapidapi.com", cfg.Gateway.Host)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, ProviderCAMARA, cfg.NumberVerification.Provider)
	assert.Equal(t, "https://xyz.requestcatcher.com/", cfg.NumberVerification.RedirectURI)
	assert.Equal(t, "App-state", cfg.NumberVerification.State)
	assert.Equal(t, "number-verification:verify", cfg.NumberVerification.Scope)
	assert.Equal(t, 10, cfg.NumberVerification.MaxRedirects)
	assert.Zero(t, cfg.NumberVerification.SessionCacheTTL)
	assert.Equal(t,
		"https://network-as-code.p-eu.rapidapi.com/passthrough/camara/v1/sim-swap/sim-swap/v0/retrieve-date",
		cfg.Gateway.URL(cfg.Gateway.SimSwapPath),
	)
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAPIDAPI_KEY", "rk")
	t.Setenv("NOKIA_API_KEY", "nk")
	t.Setenv("PORT", "8080")
	t.Setenv("SIGNALBIND_NUMBER_VERIFICATION_SESSION_CACHE_TTL", "2m")
	t.Setenv("SIGNALBIND_NUMBER_VERIFICATION_PROVIDER", "nokia")

	cfg, err := Load(newFlagSet(t))
	require.NoError(t, err)

	assert.Equal(t, "nk", cfg.Legacy.APIKey)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.NumberVerification.SessionCacheTTL)
	assert.Equal(t, ProviderNokia, cfg.NumberVerification.Provider)
}

func TestLoadFlagsOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")

	cfg, err := Load(newFlagSet(t, "--mode", "stdio", "--port", "9090", "--mock-only"))
	require.NoError(t, err)

	assert.Equal(t, ServerModeSTDIO, cfg.Server.Mode)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.MockOnly)
	assert.Empty(t, cfg.Gateway.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "signalbind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mock_only: true
server:
  port: 4000
number_verification:
  redirect_uri: https://signalbind.example.com/verify/callback
  max_redirects: 3
logging:
  format: json
`), 0o600))

	cfg, err := Load(newFlagSet(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "https://signalbind.example.com/verify/callback", cfg.NumberVerification.RedirectURI)
	assert.Equal(t, 3, cfg.NumberVerification.MaxRedirects)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.MockOnly)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want error
	}{
		{name: "missing api key", want: ErrMissingAPIKey},
		{name: "bad mode", args: []string{"--mode", "sse", "--mock-only"}},
		{name: "missing config file", args: []string{"--config", "/nonexistent/signalbind.yaml", "--mock-only"}},
		{name: "bad provider", args: []string{"--mock-only"}, env: map[string]string{"SIGNALBIND_NUMBER_VERIFICATION_PROVIDER": "twilio"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(newFlagSet(t, tt.args...))
			require.Error(t, err)
			assert.Nil(t, cfg)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Gateway: GatewayConfig{APIKey: "k"},
		NumberVerification: NumberVerificationConfig{
			Provider:     ProviderCAMARA,
			RedirectURI:  "https://cb.example.com",
			MaxRedirects: 1,
		},
	}
	require.NoError(t, valid.Validate())

	noRedirects := valid
	noRedirects.NumberVerification.MaxRedirects = 0
	assert.Error(t, noRedirects.Validate())

	noCallback := valid
	noCallback.NumberVerification.RedirectURI = ""
	assert.Error(t, noCallback.Validate())
}

func TestGatewayURL(t *testing.T) {
	g := GatewayConfig{BaseURL: "https://gw.example.com/"}
	assert.Equal(t, "https://gw.example.com/a/b", g.URL("/a/b"))
}
