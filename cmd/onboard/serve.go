package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/infrastructure/server"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	port      string
	campaigns string
	flows     string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sandbox resolution backend",
	Long: `Serves campaigns from a YAML, TOML or JSON file and flow fixtures from a
directory of JSON files (searched recursively).

Example:
  onboard serve --campaigns campaigns.yaml --flows ./flows --port 8787`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.port, "port", "", "Listen port (overrides ONBOARD_DEV_PORT)")
	serveCmd.Flags().StringVar(&serveFlags.campaigns, "campaigns", "", "Campaigns file (overrides ONBOARD_DEV_CAMPAIGNS_FILE)")
	serveCmd.Flags().StringVar(&serveFlags.flows, "flows", "", "Flow fixture directory (overrides ONBOARD_DEV_FLOWS_DIR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveFlags.port != "" {
		cfg.DevServer.Port = serveFlags.port
	}
	if serveFlags.campaigns != "" {
		cfg.DevServer.CampaignsFile = serveFlags.campaigns
	}
	if serveFlags.flows != "" {
		cfg.DevServer.FlowsDir = serveFlags.flows
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error during shutdown", zap.Error(err))
			return err
		}
		return <-errChan
	}
}
