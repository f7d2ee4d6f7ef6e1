// Package watch notifies findwork when local structural data files change.
//
// It is used in dev mode, where tabs, categories and associations are read
// from a local directory instead of the GitHub repository.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before onChange fires.
const DefaultDebounce = 500 * time.Millisecond

// ErrAlreadyStarted is returned by [Watcher.Start] on a running watcher.
var ErrAlreadyStarted = errors.New("watcher already started")

// Watcher watches a directory and calls onChange, debounced, when one of the
// named files is written, created, renamed or removed.
type Watcher struct {
	dir      string
	names    []string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a [Watcher] for names inside dir.
func New(dir string, names []string, debounce time.Duration, onChange func(), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		names:    names,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching. The directory, not the files, is watched so that
// editors replacing files atomically are still observed. The watcher stops
// when ctx is cancelled or [Watcher.Stop] is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsWatcher != nil {
		return ErrAlreadyStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsWatcher = fsw
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, fsw, w.done)
	return nil
}

// Stop stops watching and waits for the event loop to exit.
// Safe to call multiple times and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, cancel, done := w.fsWatcher, w.cancel, w.done
	w.fsWatcher, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()

	if fsw == nil {
		return
	}
	cancel()
	<-done
	_ = fsw.Close()
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("data file changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("data watcher error", "error", err)

		case <-fire:
			fire = nil
			w.onChange()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	return slices.Contains(w.names, filepath.Base(ev.Name))
}
