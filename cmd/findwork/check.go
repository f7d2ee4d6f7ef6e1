package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/findwork"
	"github.com/jpalmerr/findwork/config"
	"github.com/jpalmerr/findwork/internal/logging"
)

// checkCmd runs the pipeline once and reports the result.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Build the blob once and print a summary",
	Long: `Load the structural data, fetch the matching issues and build the blob
once, without starting the server. Prints one line per tab, or the whole
blob with --json.

Useful to verify a data change or a token before deploying.

Example:
  findwork check -c findwork.yaml
  findwork check -c findwork.yaml --json > blob.json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	checkCmd.Flags().Bool("json", false, "print the blob as JSON")
	_ = checkCmd.MarkFlagRequired("config")
}

func runCheck(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	client := config.NewGitHubClient(cfg)
	defer client.Close()

	app, err := findwork.New(config.BuildOptions(cfg, client, nil, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	b, err := app.BuildBlob(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		encoded, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return fmt.Errorf("encode blob: %w", err)
		}
		_, err = fmt.Fprintf(out, "%s\n", encoded)
		return err
	}

	fmt.Fprintf(out, "Blob built: %d tabs, %d issues\n", len(b.Tabs), b.NumIssues())
	fmt.Fprintf(out, "Tab order: %s\n\n", strings.Join(b.TabIDs(), ", "))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAB\tTITLE\tCATEGORIES\tISSUES\tTAGS")
	for _, tab := range b.Tabs {
		n := 0
		for _, c := range tab.Categories {
			n += len(c.Issues)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", tab.ID, tab.Title, len(tab.Categories), n, len(tab.Tags))
	}
	return tw.Flush()
}
