package refresher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/findwork/internal/blob"
	"github.com/jpalmerr/findwork/internal/store"
)

// BuildFunc runs the pipeline once: structural data, issues, blob.
type BuildFunc func(ctx context.Context) (*blob.Blob, error)

// Publisher makes a built blob the served snapshot.
type Publisher interface {
	Publish(b *blob.Blob) (*store.Snapshot, error)
}

// Stats counts refresh cycles since the scheduler was created.
type Stats struct {
	Succeeded uint64
	Failed    uint64
}

// Scheduler periodically rebuilds the blob and publishes it.
//
// All lifecycle methods (Start, Stop, Trigger) are safe for concurrent use.
type Scheduler struct {
	build     BuildFunc
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger
	trigger   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool

	succeeded atomic.Uint64
	failed    atomic.Uint64
}

// NewScheduler creates a new [Scheduler].
//
// Parameters:
//   - build: runs one pipeline pass
//   - publisher: receives every successfully built blob
//   - interval: delay between the end of one cycle and the start of the next
//   - logger: logger for cycle outcomes
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop].
func NewScheduler(build BuildFunc, publisher Publisher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		build:     build,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		trigger:   make(chan struct{}, 1),
	}
}

// Start begins the refresh loop in a background goroutine.
//
// Start does not refresh immediately: the first snapshot is expected to be
// published by the caller before Start. The loop waits one interval (or a
// [Scheduler.Trigger]), runs a cycle to completion, and waits again, until
// [Scheduler.Stop] is called or ctx is cancelled.
//
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	loopCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.loop(loopCtx)
	}()
}

// Stop halts the scheduler and waits for an in-flight cycle to finish.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Trigger requests a refresh ahead of schedule. Requests made while one is
// already pending are coalesced. Trigger never blocks.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stats returns the number of successful and failed cycles so far.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Succeeded: s.succeeded.Load(),
		Failed:    s.failed.Load(),
	}
}

// RunOnce runs a single refresh cycle and returns its error. A failed cycle
// leaves the published snapshot untouched.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	b, err := s.safeBuild(ctx)
	if err == nil {
		var snap *store.Snapshot
		snap, err = s.publisher.Publish(b)
		if err == nil {
			s.succeeded.Add(1)
			s.logger.Info("snapshot published",
				"generation", snap.Generation(),
				"tabs", len(b.Tabs),
				"issues", b.NumIssues(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}

	s.failed.Add(1)
	return err
}

func (s *Scheduler) loop(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.trigger:
			s.logger.Debug("refresh triggered")
		}

		if err := s.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return
			}
			s.logger.Error("refresh failed, keeping previous snapshot", "error", err)
		}

		// fixed delay: the next wait starts after the cycle completes
		timer.Reset(s.interval)
	}
}

// safeBuild calls the build function with panic recovery.
// A panic is logged with a correlation ID and the full stack trace and turned
// into an error carrying the same ID.
func (s *Scheduler) safeBuild(ctx context.Context) (b *blob.Blob, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()

			s.logger.Error("refresh build panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)

			b = nil
			err = fmt.Errorf("refresh build panic (correlation_id: %s)", correlationID)
		}
	}()

	b, err = s.build(ctx)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.New("build returned no blob")
	}
	return b, nil
}
