package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/findwork"
	"github.com/jpalmerr/findwork/config"
	"github.com/jpalmerr/findwork/dashboard"
	"github.com/jpalmerr/findwork/internal/logging"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the findwork server",
	Long: `Start the findwork server.

The server will:
  - Load configuration from the specified YAML file
  - Build the first blob (the command fails if this fails)
  - Serve the blob, static files and the index page on the configured address
  - Rebuild the blob every refresh_interval, and on data file changes in dev mode

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  findwork serve -c findwork.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	logger.Info("config loaded",
		"repository", cfg.Repository,
		"data_dir", cfg.DataDir,
		"dev_mode", cfg.DevMode,
	)

	client := config.NewGitHubClient(cfg)
	defer client.Close()

	app, err := findwork.New(config.BuildOptions(cfg, client, dashboard.Assets, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
