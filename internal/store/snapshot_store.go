package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/jpalmerr/findwork/internal/blob"
)

const subscriberBuffer = 16

// SnapshotStore is the [Store] implementation backed by a [sync.RWMutex].
type SnapshotStore struct {
	mu         sync.RWMutex
	current    *Snapshot
	generation uint64

	subscribers map[chan Published]struct{}
	subMu       sync.RWMutex

	readFile func(string) ([]byte, error)
	now      func() time.Time
}

// NewSnapshotStore creates an empty store. [SnapshotStore.Current] returns
// nil until the first [SnapshotStore.Publish].
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		subscribers: make(map[chan Published]struct{}),
		readFile:    os.ReadFile,
		now:         time.Now,
	}
}

// Publish encodes b and replaces the current snapshot with a new one holding
// b and an empty file cache. Readers holding the previous snapshot keep a
// consistent view of it.
//
// Encoding happens before the write lock is taken; the lock is held only for
// the pointer swap. On an encoding error the current snapshot is unchanged.
func (s *SnapshotStore) Publish(b *blob.Blob) (*Snapshot, error) {
	if b == nil {
		return nil, errors.New("publish: nil blob")
	}
	encoded, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("publish: encode blob: %w", err)
	}

	snap := &Snapshot{
		builtAt: s.now(),
		blob:    b,
		encoded: encoded,
		files:   make(map[string][]byte),
	}

	s.mu.Lock()
	s.generation++
	snap.generation = s.generation
	s.current = snap
	s.mu.Unlock()

	s.notifySubscribers(snap.Info())
	return snap, nil
}

// Current returns the published snapshot, or nil before the first publish.
func (s *SnapshotStore) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ReadFile returns the contents of the file at path.
//
// Hits are served from the current snapshot's cache under the read lock. On a
// miss the file is read without holding any lock and inserted under the write
// lock, but only if the snapshot it was missed on is still current; a file read
// across a publish is returned but not cached. Before the first publish files
// are read straight from disk.
//
// The returned slice may be shared with other callers and must not be modified.
func (s *SnapshotStore) ReadFile(path string) ([]byte, error) {
	key := filepath.Clean(path)

	s.mu.RLock()
	snap := s.current
	var cached []byte
	var hit bool
	if snap != nil {
		cached, hit = snap.files[key]
	}
	s.mu.RUnlock()

	if hit {
		return cached, nil
	}

	content, err := s.readFile(key)
	if err != nil {
		return nil, err
	}

	if snap != nil {
		s.mu.Lock()
		if s.current == snap {
			snap.files[key] = content
		}
		s.mu.Unlock()
	}
	return content, nil
}

// CachedFiles returns the number of files cached by the current snapshot.
func (s *SnapshotStore) CachedFiles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return 0
	}
	return len(s.current.files)
}

// Subscribe creates a new subscription and returns a channel for receiving
// publish notifications.
//
// Caller must call [SnapshotStore.Unsubscribe] when done to prevent resource leaks.
func (s *SnapshotStore) Subscribe() <-chan Published {
	ch := make(chan Published, subscriberBuffer)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (s *SnapshotStore) Unsubscribe(ch <-chan Published) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for subCh := range s.subscribers {
		if subCh == ch {
			delete(s.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends p to all active subscribers without blocking.
func (s *SnapshotStore) notifySubscribers(p Published) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- p:
		default:
			// subscriber is slow, drop the message
		}
	}
}
