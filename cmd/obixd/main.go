// Package main is the entry point for the obixd daemon.
//
// obixd mirrors the sensor values collected by an oBIX gateway onto a
// downstream event bus (Kafka, MQTT or the log).
//
// Usage:
//
//	obixd serve -c obix.yaml    # Start the polling daemon
//	obixd validate -c obix.yaml # Validate configuration
//	obixd version               # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "obixd",
	Short: "oBIX gateway connector daemon",
	Long: `obixd polls an oBIX gateway (e.g. Can2Go) for the present values of
configured sensor points and publishes the corresponding events to a
downstream bus, following the same rules as directly attached sensor
drivers: values are published when first seen, when they change, or when
the last publication is older than the configured TTL.

Quick start:
  1. Create a config file (obix.yaml)
  2. Run: obixd serve -c obix.yaml`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("obixd %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}
