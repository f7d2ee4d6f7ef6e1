// Package main is the entry point for the findwork CLI.
//
// Usage:
//
//	findwork serve -c findwork.yaml    # Serve the blob and front-end
//	findwork validate -c findwork.yaml # Validate configuration
//	findwork check -c findwork.yaml    # Build the blob once and summarize it
//	findwork version                   # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd only displays help; the work happens in subcommands.
var rootCmd = &cobra.Command{
	Use:   "findwork",
	Short: "Serve a catalogue of beginner-friendly GitHub issues",
	Long: `findwork collects open GitHub issues for a curated set of projects and
serves them, grouped into tabs and categories, to a static front-end.

Tabs, categories and their associations live as JSON files in a GitHub
repository (or, in dev mode, a local directory). The issue list is rebuilt
on a fixed interval; a failed rebuild keeps serving the previous one.

Quick start:
  1. Create a config file (findwork.yaml)
  2. Run: findwork serve -c findwork.yaml
  3. Open http://127.0.0.1:3000 in your browser

Example config:
  repository: nrc/find-work
  token: ${GITHUB_TOKEN}
  static_root: front/out/static
  refresh_interval: 1h`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "findwork %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
