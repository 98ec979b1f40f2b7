package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/brizzai/signalbind/internal/logger"
	"github.com/brizzai/signalbind/internal/receipt"
	"github.com/brizzai/signalbind/internal/verification"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

const (
	outputPretty = "pretty"
	outputJSON   = "json"
	outputYAML   = "yaml"
)

var (
	verifyPhone  string
	verifyMock   bool
	verifyKYC    string
	verifyOutput string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the full verification once and print the consent receipt",
	Example: `  signalbind verify --phone +99999991000
  signalbind verify --phone 15551234567 --mock --output json
  signalbind verify --phone +99999991000 --kyc kyc.yaml`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyPhone, "phone", "", "Phone number to verify")
	verifyCmd.Flags().BoolVar(&verifyMock, "mock", false, "Use fixed sample values instead of the gateway")
	verifyCmd.Flags().StringVar(&verifyKYC, "kyc", "", "YAML or JSON file with KYC attributes")
	verifyCmd.Flags().StringVarP(&verifyOutput, "output", "o", outputPretty, "Output format (pretty|json|yaml)")
	_ = verifyCmd.MarkFlagRequired("phone")
}

func runVerify(cmd *cobra.Command, args []string) error {
	switch verifyOutput {
	case outputPretty, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unsupported output format: %s", verifyOutput)
	}

	if verifyMock {
		if err := cmd.Flags().Set("mock-only", "true"); err != nil {
			return err
		}
	}
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	req := verification.Request{PhoneNumber: verifyPhone, MockMode: verifyMock}
	if verifyKYC != "" {
		if req.KYCData, err = readKYCFile(verifyKYC); err != nil {
			return err
		}
	}

	var svc *verification.Service
	app := fx.New(coreModules(cfg), fx.Populate(&svc))
	if err := app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	rec, err := svc.Verify(ctx, req)
	if err != nil {
		return err
	}
	return writeReceipt(cmd.OutOrStdout(), rec, verifyOutput)
}

// readKYCFile loads a YAML or JSON mapping and returns it as a JSON object.
func readKYCFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read KYC file: %w", err)
	}
	var attrs map[string]any
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to parse KYC file %s: %w", path, err)
	}
	if attrs == nil {
		return nil, fmt.Errorf("KYC file %s is empty", path)
	}
	return json.Marshal(attrs)
}

func writeReceipt(w io.Writer, rec *receipt.ConsentReceipt, format string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rec)
	default:
		_, err := fmt.Fprintln(w, renderReceipt(rec))
		return err
	}
}
