package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/infrastructure/config"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/logging"
)

var (
	// Global flags
	verbose bool

	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Onboarding flow tooling: sandbox backend, resolution and validation",
	Long: `onboard works against the onboarding resolution contract.

Configuration is read from ONBOARD_* environment variables, for example
ONBOARD_API_BASE_URL, ONBOARD_API_KEY and ONBOARD_DEV_PORT.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logCfg := logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development}
		if verbose {
			logCfg.Level = "debug"
		}
		logger, err = logging.New(logCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, resolveCmd, validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Debug("command failed", zap.Error(err))
		}
		os.Exit(1)
	}
}
