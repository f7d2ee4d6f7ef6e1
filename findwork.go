package findwork

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jpalmerr/findwork/internal/blob"
	"github.com/jpalmerr/findwork/internal/data"
	"github.com/jpalmerr/findwork/internal/issues"
	"github.com/jpalmerr/findwork/internal/refresher"
	"github.com/jpalmerr/findwork/internal/server"
	"github.com/jpalmerr/findwork/internal/store"
	"github.com/jpalmerr/findwork/internal/watch"
)

const (
	defaultAddr            = "127.0.0.1:3000"
	defaultWebURL          = "https://github.com"
	defaultRefreshInterval = time.Hour
	defaultMaxConcurrency  = 8
)

// App builds the find-work blob, keeps it fresh and serves it.
//
// The typical lifecycle is:
//
//	app, err := findwork.New(
//	    findwork.WithTracker(client),
//	    findwork.WithSource(client),
//	    findwork.WithStaticRoot("front/out/static"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	return app.Start(ctx) // blocks until ctx is cancelled
type App struct {
	source          data.Source
	fetcher         *issues.Fetcher
	repoURL         blob.RepoURLFunc
	store           *store.SnapshotStore
	addr            string
	staticRoot      string
	indexPath       string
	assets          fs.FS
	refreshInterval time.Duration
	watchDir        string
	logger          *slog.Logger
}

// New creates an [App]. [WithTracker] and [WithSource] are required.
//
// Defaults:
//   - Addr: 127.0.0.1:3000
//   - Web URL: https://github.com
//   - Refresh interval: 1 hour
//   - Max concurrency: 8
func New(opts ...Option) (*App, error) {
	cfg := &appConfig{
		addr:            defaultAddr,
		webURL:          defaultWebURL,
		refreshInterval: defaultRefreshInterval,
		maxConcurrency:  defaultMaxConcurrency,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.tracker == nil {
		return nil, errors.New("a tracker is required")
	}
	if cfg.source == nil {
		return nil, errors.New("a data source is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &App{
		source: cfg.source,
		fetcher: issues.NewFetcher(cfg.tracker,
			issues.WithMaxConcurrency(cfg.maxConcurrency),
			issues.WithLogger(logger),
		),
		repoURL:         blob.GitHubRepoURL(cfg.webURL),
		store:           store.NewSnapshotStore(),
		addr:            cfg.addr,
		staticRoot:      cfg.staticRoot,
		indexPath:       cfg.indexPath,
		assets:          cfg.assets,
		refreshInterval: cfg.refreshInterval,
		watchDir:        cfg.watchDir,
		logger:          logger,
	}, nil
}

// BuildBlob runs one pass of the pipeline: load structural data, fetch the
// matching issues and build the blob. Nothing is published.
func (a *App) BuildBlob(ctx context.Context) (*blob.Blob, error) {
	started := time.Now()

	sd, err := data.Load(ctx, a.source)
	if err != nil {
		return nil, fmt.Errorf("load structural data: %w", err)
	}

	issueData, err := a.fetcher.Fetch(ctx, sd)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}

	b, err := blob.Build(sd, issueData, a.repoURL)
	if err != nil {
		return nil, fmt.Errorf("build blob: %w", err)
	}

	a.logger.Debug("blob built",
		"tabs", len(b.Tabs),
		"categories", sd.NumCategories(),
		"issues", b.NumIssues(),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return b, nil
}

// Store returns the snapshot store read by the HTTP server.
func (a *App) Store() store.Store {
	return a.store
}

// Start builds and publishes the first snapshot, then refreshes it in the
// background and serves it over HTTP until ctx is cancelled.
//
// A failing first build is returned: the server never starts without data.
// Later refresh failures are logged and the previous snapshot stays served.
// Returns nil on graceful shutdown.
func (a *App) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	a.logger.Info("findwork starting",
		"addr", a.addr,
		"refresh_interval", a.refreshInterval.String(),
	)

	b, err := a.BuildBlob(ctx)
	if err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	snap, err := a.store.Publish(b)
	if err != nil {
		return fmt.Errorf("initial publish: %w", err)
	}
	a.logger.Info("snapshot published", "generation", snap.Generation(), "tabs", len(b.Tabs), "issues", b.NumIssues())

	scheduler := refresher.NewScheduler(a.BuildBlob, a.store, a.refreshInterval, a.logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if a.watchDir != "" {
		watcher := watch.New(a.watchDir,
			[]string{data.TabsFile, data.CategoriesFile, data.TabCategoryFile},
			watch.DefaultDebounce, scheduler.Trigger, a.logger)
		if err := watcher.Start(ctx); err != nil {
			// the scheduled refresh still runs
			a.logger.Warn("data watcher disabled", "dir", a.watchDir, "error", err)
		} else {
			defer watcher.Stop()
			a.logger.Info("watching data files", "dir", a.watchDir)
		}
	}

	httpServer := server.NewServer(a.store, server.Options{
		Addr:       a.addr,
		StaticRoot: a.staticRoot,
		IndexPath:  a.indexPath,
		Assets:     a.assets,
	}, a.logger)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	a.logger.Info("findwork stopped")
	return nil
}
