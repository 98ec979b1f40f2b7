package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("signalbind version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server             ServerConfig             `mapstructure:"server"`
	Logging            LoggingConfig            `mapstructure:"logging"`
	Gateway            GatewayConfig            `mapstructure:"gateway"`
	NumberVerification NumberVerificationConfig `mapstructure:"number_verification"`
	Legacy             LegacyConfig             `mapstructure:"legacy"`
	// MockOnly allows starting without gateway credentials; live requests will fail.
	MockOnly bool `mapstructure:"mock_only"`
}

type ServerMode string

const (
	ServerModeHTTP  ServerMode = "http"
	ServerModeSTDIO ServerMode = "stdio"
)

type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Mode    ServerMode `mapstructure:"mode"`
	Name    string     `mapstructure:"name"`
	Version string     `mapstructure:"version"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// GatewayConfig describes the RapidAPI gateway fronting the Network-as-Code APIs.
type GatewayConfig struct {
	BaseURL                string        `mapstructure:"base_url"`
	Host                   string        `mapstructure:"host"`
	APIKey                 string        `mapstructure:"api_key"`
	Timeout                time.Duration `mapstructure:"timeout"`
	CredentialsPath        string        `mapstructure:"credentials_path"`
	NumberVerificationPath string        `mapstructure:"number_verification_path"`
	SimSwapPath            string        `mapstructure:"sim_swap_path"`
	KYCMatchPath           string        `mapstructure:"kyc_match_path"`
}

// URL joins the gateway base URL and a path.
func (g GatewayConfig) URL(path string) string {
	return strings.TrimSuffix(g.BaseURL, "/") + path
}

type NumberVerificationProvider string

const (
	ProviderCAMARA NumberVerificationProvider = "camara"
	ProviderNokia  NumberVerificationProvider = "nokia"
)

type NumberVerificationConfig struct {
	Provider        NumberVerificationProvider `mapstructure:"provider"`
	RedirectURI     string                     `mapstructure:"redirect_uri"`
	State           string                     `mapstructure:"state"`
	Scope           string                     `mapstructure:"scope"`
	MaxRedirects    int                        `mapstructure:"max_redirects"`
	SessionCacheTTL time.Duration              `mapstructure:"session_cache_ttl"`
}

// LegacyConfig holds the superseded direct Nokia API settings.
type LegacyConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// ErrMissingAPIKey is returned when no gateway key is configured outside mock-only mode.
var ErrMissingAPIKey = errors.New("RAPIDAPI_KEY is required, set it in the environment or gateway.api_key in the config")

// SetDefaults registers default values matching the public Network-as-Code gateway.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "")
	v.SetDefault("server.mode", string(ServerModeHTTP))
	v.SetDefault("server.name", "SignalBind")
	v.SetDefault("server.version", version)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)

	v.SetDefault("gateway.base_url", "https://network-as-code.p-eu.rapidapi.com")
	v.SetDefault("gateway.host", "network-as-code.nokia.rapidapi.com")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.credentials_path", "/oauth2/v1/auth/clientcredentials")
	v.SetDefault("gateway.number_verification_path", "/passthrough/camara/v1/number-verification/number-verification/v0/verify")
	v.SetDefault("gateway.sim_swap_path", "/passthrough/camara/v1/sim-swap/sim-swap/v0/retrieve-date")
	v.SetDefault("gateway.kyc_match_path", "/passthrough/camara/v1/passthrough/kyc-match/v0.3/match")

	v.SetDefault("number_verification.provider", string(ProviderCAMARA))
	v.SetDefault("number_verification.redirect_uri", "https://xyz.requestcatcher.com/")
	v.SetDefault("number_verification.state", "App-state")
	v.SetDefault("number_verification.scope", "number-verification:verify")
	v.SetDefault("number_verification.max_redirects", 10)
	v.SetDefault("number_verification.session_cache_ttl", time.Duration(0))

	v.SetDefault("legacy.base_url", "https://api.nokia.network")
}

// InitFlags initializes command line flags (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("mode", "", "Server mode (http|stdio)")
	fs.Int("port", 0, "HTTP port (overrides PORT)")
	fs.String("config", "", "Path to a config file")
	fs.Bool("mock-only", false, "Start without gateway credentials")
}

// Load reads the configuration from config files, .env, environment and flags.
// fs may be nil when no flags are involved.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("SIGNALBIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Unprefixed variables kept for compatibility with existing deployments
	for key, env := range map[string]string{
		"gateway.api_key": "RAPIDAPI_KEY",
		"legacy.api_key":  "NOKIA_API_KEY",
		"server.port":     "PORT",
	} {
		if err := v.BindEnv(key, "SIGNALBIND_"+strings.ToUpper(strings.NewReplacer(".", "_").Replace(key)), env); err != nil {
			return nil, err
		}
	}

	var configFile string
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
		configFile, _ = fs.GetString("config")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/signalbind")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Flags win over file and environment
	if mode := v.GetString("mode"); mode != "" {
		switch ServerMode(mode) {
		case ServerModeHTTP, ServerModeSTDIO:
			cfg.Server.Mode = ServerMode(mode)
		default:
			return nil, fmt.Errorf("unsupported server mode: %s", mode)
		}
	}
	if port := v.GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if v.GetBool("mock-only") {
		cfg.MockOnly = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise only fail on the first live request.
func (c *Config) Validate() error {
	if c.Gateway.APIKey == "" && !c.MockOnly {
		return ErrMissingAPIKey
	}
	switch c.NumberVerification.Provider {
	case ProviderCAMARA, ProviderNokia:
	default:
		return fmt.Errorf("unsupported number verification provider: %s", c.NumberVerification.Provider)
	}
	if c.NumberVerification.MaxRedirects <= 0 {
		return fmt.Errorf("number_verification.max_redirects must be positive, got %d", c.NumberVerification.MaxRedirects)
	}
	if c.NumberVerification.RedirectURI == "" {
		return fmt.Errorf("number_verification.redirect_uri is required")
	}
	return nil
}
