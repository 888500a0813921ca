package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	obix "github.com/cstbox/ext-obix"
	"github.com/cstbox/ext-obix/config"
	"github.com/cstbox/ext-obix/internal/sink"
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts the polling daemon.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the polling daemon",
	Long: `Start the oBIX polling daemon.

The daemon will:
  - Load configuration from the specified YAML file
  - Connect to the configured event sink (kafka, mqtt or log)
  - Poll the gateway at the configured period until interrupted

The daemon runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  obixd serve -c obix.yaml
  obixd serve --config /etc/cstbox/obix.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Info("configuration loaded", "path", configFile)

	events, err := sink.New(cfg.Sink, logger)
	if err != nil {
		return fmt.Errorf("failed to create event sink: %w", err)
	}
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error("failed to close event sink", "error", err)
		}
	}()

	conn, err := obix.New(cfg, events, obix.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create connector: %w", err)
	}

	conn.Start()
	defer conn.Terminate()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutting down", "signal", sig.String())

	return nil
}
