// Demo of the findwork SDK against a local mock of the GitHub API.
//
// Usage:
//
//	go run ./example
//
// The mock keeps running on :9999, so the CLI can be pointed at it too:
//
//	go run ./cmd/findwork serve -c example/findwork.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/findwork"
	"github.com/jpalmerr/findwork/dashboard"
	"github.com/jpalmerr/findwork/internal/github"
)

func main() {
	// start mock GitHub (see mock_github.go)
	go StartMockGitHub("127.0.0.1:9999", "example/data")
	time.Sleep(100 * time.Millisecond)

	client := github.NewClient(github.Options{
		BaseURL:    "http://127.0.0.1:9999",
		Repository: "example/find-work",
		DataDir:    "data",
	})
	defer client.Close()

	app, err := findwork.New(
		findwork.WithTracker(client),
		findwork.WithSource(client),
		findwork.WithStaticRoot("example/static"),
		findwork.WithAssets(dashboard.Assets),
		findwork.WithRefreshInterval(20*time.Second),
	)
	if err != nil {
		slog.Error("failed to create findwork", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  findwork demo")
	fmt.Println()
	fmt.Println("  Open http://127.0.0.1:3000 in your browser")
	fmt.Println("  Mock GitHub API on http://127.0.0.1:9999, refreshing every 20s")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		slog.Error("findwork error", "error", err)
		os.Exit(1)
	}
}
