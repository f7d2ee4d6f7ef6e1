package store

import (
	"time"

	"github.com/jpalmerr/findwork/internal/blob"
)

// Published announces a newly published snapshot to subscribers.
type Published struct {
	// Generation is the snapshot's publish counter, starting at 1.
	Generation uint64 `json:"generation"`

	// BuiltAt is the time the snapshot was published.
	BuiltAt time.Time `json:"built_at"`

	// Tabs is the number of tabs in the published blob.
	Tabs int `json:"tabs"`

	// Issues is the number of issue listings in the published blob.
	Issues int `json:"issues"`
}

// Store defines the read side of the snapshot store.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Current returns the published snapshot, or nil before the first publish.
	Current() *Snapshot

	// ReadFile returns the contents of the file at path, served from the
	// current snapshot's cache when possible.
	ReadFile(path string) ([]byte, error)

	// Subscribe returns a channel that receives publish notifications.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Published

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Published)
}

// Snapshot is one published state: a blob, its JSON encoding and a cache of
// static files read while it was current.
//
// Everything but the file cache is immutable. The cache is only accessed by
// [SnapshotStore] under its lock.
type Snapshot struct {
	generation uint64
	builtAt    time.Time
	blob       *blob.Blob
	encoded    []byte
	files      map[string][]byte
}

// Generation returns the publish counter of the snapshot.
func (s *Snapshot) Generation() uint64 { return s.generation }

// BuiltAt returns the publish time of the snapshot.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Blob returns the published blob. It must not be modified.
func (s *Snapshot) Blob() *blob.Blob { return s.blob }

// JSON returns the blob encoded as JSON. The slice is shared by all readers
// and must not be modified.
func (s *Snapshot) JSON() []byte { return s.encoded }

// Info summarizes the snapshot.
func (s *Snapshot) Info() Published {
	return Published{
		Generation: s.generation,
		BuiltAt:    s.builtAt,
		Tabs:       len(s.blob.Tabs),
		Issues:     s.blob.NumIssues(),
	}
}
