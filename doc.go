// Package findwork serves a catalogue of contributor-friendly GitHub issues.
//
// Tabs, categories and their associations are read from JSON data files.
// For every association, the matching open issues are fetched from GitHub
// and the result is assembled into one JSON document, the blob, which is
// served to a static front-end. The blob is rebuilt on a fixed delay and
// swapped in atomically; a failed rebuild keeps the previous one.
//
// # Quick Start
//
//	client := github.NewClient(github.Options{Repository: "nrc/find-work", DataDir: "data"})
//	app, _ := findwork.New(
//	    findwork.WithTracker(client),
//	    findwork.WithSource(client),
//	    findwork.WithStaticRoot("front/out/static"),
//	    findwork.WithAssets(dashboard.Assets),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	app.Start(ctx) // blocks until ctx is cancelled
//
// # Architecture
//
//   - internal/data: structural data (tabs, categories, associations) and its sources
//   - internal/github: GitHub REST client
//   - internal/issues: concurrent issue fetching per association
//   - internal/blob: pure assembly of the served document
//   - internal/store: the published snapshot and its static file cache
//   - internal/refresher: fixed-delay rebuild loop
//   - internal/server: HTTP routes and Server-Sent Events
//   - internal/watch: dev-mode reload on data file changes
//   - config: YAML configuration for the findwork binary
//   - dashboard: embedded fallback index page
package findwork
