package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"home-safety-monitor/internal/config"
	"home-safety-monitor/internal/service/checkcfg"
	"home-safety-monitor/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command for checking a configuration.
	rootCmd = &cobra.Command{
		Use:   "safety-checkcfg",
		Short: "Validate a safety-monitor configuration without running it.",
		Long: `Builds the full symptom and fault registry from a configuration file
without connecting to any host runtime, then reports safety mechanisms that
resolve to zero or several faults. Exits with non-zero status when the
configuration is unsound.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			options := &checkcfg.Options{
				ConfigPath: configPath,
			}

			return checkcfg.Run(context.Background(), options)
		},
	}
)

// Execute runs the safety-checkcfg CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
}
