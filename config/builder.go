package config

import (
	"io/fs"
	"log/slog"

	"github.com/jpalmerr/findwork"
	"github.com/jpalmerr/findwork/internal/data"
	"github.com/jpalmerr/findwork/internal/github"
)

// NewGitHubClient creates the GitHub client described by cfg.
func NewGitHubClient(cfg *Config) *github.Client {
	return github.NewClient(github.Options{
		BaseURL:    cfg.APIURL,
		Repository: cfg.Repository,
		DataDir:    cfg.DataDir,
		Username:   cfg.Username,
		Token:      cfg.Token,
		Timeout:    cfg.RequestTimeout.Duration(),
	})
}

// BuildOptions converts parsed configuration into [findwork.Option] values.
//
// Issues are always queried through client. Structural data comes from
// client too, unless dev mode is on, in which case it is read from the local
// data directory and watched for changes.
func BuildOptions(cfg *Config, client *github.Client, assets fs.FS, logger *slog.Logger) []findwork.Option {
	opts := []findwork.Option{
		findwork.WithTracker(client),
		findwork.WithAddr(cfg.Addr),
		findwork.WithStaticRoot(cfg.StaticRoot),
		findwork.WithIndexPath(cfg.IndexPath),
		findwork.WithWebURL(cfg.WebURL),
		findwork.WithRefreshInterval(cfg.RefreshInterval.Duration()),
	}

	if cfg.MaxConcurrency > 0 {
		opts = append(opts, findwork.WithMaxConcurrency(cfg.MaxConcurrency))
	}

	if cfg.DevMode {
		opts = append(opts,
			findwork.WithSource(data.DirSource{Dir: cfg.DataDir}),
			findwork.WithWatchDir(cfg.DataDir),
		)
	} else {
		opts = append(opts, findwork.WithSource(client))
	}

	if assets != nil {
		opts = append(opts, findwork.WithAssets(assets))
	}
	if logger != nil {
		opts = append(opts, findwork.WithLogger(logger))
	}

	return opts
}
