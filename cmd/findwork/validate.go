package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/findwork/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a findwork configuration file without contacting GitHub.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  findwork validate -c findwork.yaml`,
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

	source := fmt.Sprintf("github %s/%s", cfg.Repository, cfg.DataDir)
	if cfg.DevMode {
		source = "local " + cfg.DataDir + " (dev mode)"
	}
	index := cfg.IndexPath
	if index == "" {
		index = "embedded"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Repository:       %s\n", cfg.Repository)
	fmt.Fprintf(out, "  Data source:      %s\n", source)
	fmt.Fprintf(out, "  Listen address:   %s\n", cfg.Addr)
	fmt.Fprintf(out, "  Index:            %s\n", index)
	fmt.Fprintf(out, "  Static root:      %s\n", cfg.StaticRoot)
	fmt.Fprintf(out, "  Refresh interval: %s\n", cfg.RefreshInterval.Duration())
	fmt.Fprintf(out, "  Authenticated:    %t\n", cfg.Token != "")

	return nil
}
