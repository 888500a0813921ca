package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cstbox/ext-obix/config"
)

// validateCmd validates a config file without starting the daemon.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an obixd configuration file without starting the daemon.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  obixd validate -c obix.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Gateway:        %s (node %s, device %s)\n",
		cfg.Gateway.Host, cfg.Gateway.NodeID, cfg.Gateway.DeviceID)
	fmt.Printf("  Points:         %d mapped, %d filtered\n", len(cfg.Mapping), len(cfg.Filters))
	fmt.Printf("  Polling period: %s\n", cfg.Global.PollingPeriod.Duration())
	fmt.Printf("  Events TTL:     %s\n", cfg.Global.EventsTTL.Duration())
	fmt.Printf("  Sink:           %s\n", cfg.Sink.Type)

	return nil
}
