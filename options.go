package findwork

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jpalmerr/findwork/internal/data"
	"github.com/jpalmerr/findwork/internal/issues"
)

// appConfig holds mutable state during App construction.
type appConfig struct {
	tracker         issues.Tracker
	source          data.Source
	addr            string
	staticRoot      string
	indexPath       string
	assets          fs.FS
	webURL          string
	refreshInterval time.Duration
	maxConcurrency  int
	watchDir        string
	logger          *slog.Logger
}

// Option configures an [App] during construction.
//
// Options return an error if validation fails.
type Option func(*appConfig) error

// WithTracker sets the issue tracker queried for every association.
// Required.
func WithTracker(t issues.Tracker) Option {
	return func(cfg *appConfig) error {
		if t == nil {
			return errors.New("tracker cannot be nil")
		}
		cfg.tracker = t
		return nil
	}
}

// WithSource sets where tabs, categories and associations are read from.
// Required.
//
// Use the GitHub client to read from the data repository, or a
// [data.DirSource] to read a local checkout.
func WithSource(src data.Source) Option {
	return func(cfg *appConfig) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		cfg.source = src
		return nil
	}
}

// WithAddr sets the listen address of the HTTP server.
// Defaults to 127.0.0.1:3000.
func WithAddr(addr string) Option {
	return func(cfg *appConfig) error {
		if addr == "" {
			return errors.New("addr cannot be empty")
		}
		cfg.addr = addr
		return nil
	}
}

// WithStaticRoot sets the directory served under /static/.
func WithStaticRoot(dir string) Option {
	return func(cfg *appConfig) error {
		cfg.staticRoot = dir
		return nil
	}
}

// WithIndexPath sets the index document served for unrouted paths. When
// unset, the index from [WithAssets] is served.
func WithIndexPath(p string) Option {
	return func(cfg *appConfig) error {
		cfg.indexPath = p
		return nil
	}
}

// WithAssets sets the filesystem holding the fallback assets/index.html.
func WithAssets(assets fs.FS) Option {
	return func(cfg *appConfig) error {
		cfg.assets = assets
		return nil
	}
}

// WithWebURL sets the web root used to build repository links, e.g.
// "https://github.com".
func WithWebURL(u string) Option {
	return func(cfg *appConfig) error {
		if u == "" {
			return errors.New("web url cannot be empty")
		}
		cfg.webURL = strings.TrimRight(u, "/")
		return nil
	}
}

// WithRefreshInterval sets the delay between the end of one refresh and the
// start of the next. Defaults to one hour.
func WithRefreshInterval(d time.Duration) Option {
	return func(cfg *appConfig) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		cfg.refreshInterval = d
		return nil
	}
}

// WithMaxConcurrency bounds the number of issue queries in flight during a
// refresh. Defaults to 8.
func WithMaxConcurrency(n int) Option {
	return func(cfg *appConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithWatchDir enables an early refresh whenever the data files in dir change.
// Intended for local development against a [data.DirSource].
func WithWatchDir(dir string) Option {
	return func(cfg *appConfig) error {
		cfg.watchDir = dir
		return nil
	}
}

// WithLogger sets the logger. If not specified, [slog.Default] is used.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *appConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}
