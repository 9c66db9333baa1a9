package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"home-safety-monitor/internal/config"
	"home-safety-monitor/internal/service/monitor"
	"home-safety-monitor/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile path where latched states are persisted.
	stateFile string

	// rootCmd represents the base command for running the safety monitor.
	rootCmd = &cobra.Command{
		Use:   "safety-monitor [listen-address]",
		Short: "Run the home safety monitor.",
		Long: `Starts the safety monitor: it evaluates the configured safety mechanisms
against the host runtime's sensors, latches symptoms, derives fault states,
drives notifications and recovery actions and serves the monitoring HTTP API.

The listen address can be provided as argument to override the configuration
(e.g. :8086, 0.0.0.0:8086). Latched symptom and fault states are persisted to
a JSON file and restored on restart.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &monitor.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				StateFile:     stateFile,
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the safety-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&stateFile, "state-file", "s", "", "path to persist latched states (defaults to the configured value)")
}
