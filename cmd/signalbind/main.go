package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/brizzai/signalbind/internal/config"
	"github.com/brizzai/signalbind/internal/logger"
	"github.com/brizzai/signalbind/internal/metrics"
	"github.com/brizzai/signalbind/internal/numverify"
	"github.com/brizzai/signalbind/internal/requester"
	"github.com/brizzai/signalbind/internal/server"
	"github.com/brizzai/signalbind/internal/telco"
	"github.com/brizzai/signalbind/internal/verification"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const verifyTimeout = 2 * time.Minute

func main() {
	Execute()
}

var rootCmd = &cobra.Command{
	Use:   "signalbind",
	Short: "Telco-backed phone number consent verification",
	Long: `SignalBind verifies that a phone number belongs to the device's SIM, checks for
recent SIM swaps and matches KYC attributes through the Network-as-Code gateway,
returning the result as a consent receipt.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and MCP server",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		pterm.Info.Println(config.GetVersionInfo())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd, verifyCmd, versionCmd)
}

// loadConfig reads the configuration and initializes the global logger.
// quietStdout moves console logging off stdout.
func loadConfig(cmd *cobra.Command, quietStdout bool) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if quietStdout {
		cfg.Logging.DisableConsole = true
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// coreModules assemble the verification service.
func coreModules(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(func(c *config.Config) *config.GatewayConfig { return &c.Gateway }),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
		requester.Module,
		metrics.Module,
		numverify.Module,
		telco.Module,
		verification.Module,
	)
}

func runServe(cmd *cobra.Command, args []string) error {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("Caught panic: %v\n%s\n", r, debug.Stack())
			os.Exit(2)
		}
	}()

	// stdout carries the MCP protocol in stdio mode
	mode, _ := cmd.Flags().GetString("mode")
	cfg, err := loadConfig(cmd, config.ServerMode(mode) == config.ServerModeSTDIO)
	if err != nil {
		return err
	}
	if cfg.Server.Mode == config.ServerModeSTDIO && !cfg.Logging.DisableConsole {
		cfg.Logging.DisableConsole = true
		if err := logger.InitLogger(&cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	defer func() { _ = logger.Sync() }()

	if cfg.MockOnly {
		pterm.Warning.Println("Running without gateway credentials, only mockMode requests will succeed")
	}

	app := fx.New(
		coreModules(cfg),
		server.Module,
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}
