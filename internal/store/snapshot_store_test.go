package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/jpalmerr/findwork/internal/blob"
	"github.com/jpalmerr/findwork/internal/github"
)

func testBlob(tabIDs ...string) *blob.Blob {
	b := &blob.Blob{Tabs: []blob.Tab{}}
	for _, id := range tabIDs {
		b.Tabs = append(b.Tabs, blob.Tab{
			ID:         id,
			Title:      "Title " + id,
			Categories: []blob.Category{{ID: id + "-cat", Issues: []github.Issue{{Number: 1}}}},
			Tags:       []string{"a"},
		})
	}
	return b
}

func TestNewSnapshotStore(t *testing.T) {
	s := NewSnapshotStore()
	if s == nil {
		t.Fatal("NewSnapshotStore() = nil")
	}
	if s.Current() != nil {
		t.Error("Current() before first publish should be nil")
	}
}

func TestSnapshotStore_Publish(t *testing.T) {
	s := NewSnapshotStore()

	snap, err := s.Publish(testBlob("foo"))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if snap.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", snap.Generation())
	}
	if s.Current() != snap {
		t.Error("Current() should return the published snapshot")
	}

	var decoded blob.Blob
	if err := json.Unmarshal(snap.JSON(), &decoded); err != nil {
		t.Fatalf("snapshot JSON invalid: %v", err)
	}
	if len(decoded.Tabs) != 1 || decoded.Tabs[0].ID != "foo" {
		t.Errorf("decoded blob = %+v", decoded)
	}

	info := snap.Info()
	if info.Tabs != 1 || info.Issues != 1 || info.Generation != 1 {
		t.Errorf("Info() = %+v", info)
	}

	next, err := s.Publish(testBlob("bar"))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if next.Generation() != 2 {
		t.Errorf("Generation() = %d, want 2", next.Generation())
	}
	if s.Current().Blob().Tabs[0].ID != "bar" {
		t.Error("Current() should return the newest blob")
	}
}

func TestSnapshotStore_PublishNil(t *testing.T) {
	s := NewSnapshotStore()
	if _, err := s.Publish(testBlob("keep")); err != nil {
		t.Fatal(err)
	}
	before := s.Current().JSON()

	if _, err := s.Publish(nil); err == nil {
		t.Fatal("Publish(nil) expected error")
	}
	if !bytes.Equal(s.Current().JSON(), before) {
		t.Error("failed publish changed the current snapshot")
	}
}

func TestSnapshotStore_ReadFileCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.js")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewSnapshotStore()
	if _, err := s.Publish(testBlob("foo")); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadFile(path)
	if err != nil || string(got) != "v1" {
		t.Fatalf("ReadFile() = %q, %v", got, err)
	}
	if s.CachedFiles() != 1 {
		t.Errorf("CachedFiles() = %d, want 1", s.CachedFiles())
	}

	// change on disk: still served from cache until the next publish
	if err := os.WriteFile(path, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	got, _ = s.ReadFile(path)
	if string(got) != "v1" {
		t.Errorf("ReadFile() = %q, want cached v1", got)
	}

	if _, err := s.Publish(testBlob("foo")); err != nil {
		t.Fatal(err)
	}
	if s.CachedFiles() != 0 {
		t.Errorf("CachedFiles() after publish = %d, want 0", s.CachedFiles())
	}
	got, _ = s.ReadFile(path)
	if string(got) != "v2" {
		t.Errorf("ReadFile() after publish = %q, want v2", got)
	}
}

func TestSnapshotStore_ReadFileMissing(t *testing.T) {
	s := NewSnapshotStore()
	if _, err := s.Publish(testBlob("foo")); err != nil {
		t.Fatal(err)
	}

	_, err := s.ReadFile(filepath.Join(t.TempDir(), "missing.css"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile() error = %v, want os.ErrNotExist", err)
	}
	if s.CachedFiles() != 0 {
		t.Error("failed reads must not be cached")
	}
}

func TestSnapshotStore_ReadFileBeforePublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte("<html>"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewSnapshotStore()
	got, err := s.ReadFile(path)
	if err != nil || string(got) != "<html>" {
		t.Errorf("ReadFile() = %q, %v", got, err)
	}
}

func TestSnapshotStore_ReadAcrossPublishNotCached(t *testing.T) {
	s := NewSnapshotStore()
	if _, err := s.Publish(testBlob("foo")); err != nil {
		t.Fatal(err)
	}

	// publish while the file read is in flight
	s.readFile = func(path string) ([]byte, error) {
		if _, err := s.Publish(testBlob("foo")); err != nil {
			t.Errorf("Publish() error = %v", err)
		}
		return []byte("stale"), nil
	}

	got, err := s.ReadFile("/any/file")
	if err != nil || string(got) != "stale" {
		t.Fatalf("ReadFile() = %q, %v", got, err)
	}
	if s.CachedFiles() != 0 {
		t.Error("file read across a publish must not be cached in the new snapshot")
	}
}

func TestSnapshotStore_Subscribe(t *testing.T) {
	s := NewSnapshotStore()
	ch := s.Subscribe()

	if _, err := s.Publish(testBlob("foo", "bar")); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-ch:
		if p.Generation != 1 || p.Tabs != 2 {
			t.Errorf("notification = %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for publish notification")
	}

	s.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	// second unsubscribe is a no-op
	s.Unsubscribe(ch)
}

func TestSnapshotStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewSnapshotStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			if _, err := s.Publish(testBlob("foo")); err != nil {
				t.Errorf("Publish() error = %v", err)
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

// TestSnapshotStore_ConcurrentReadersSeeWholeSnapshots verifies that readers
// racing a publisher always observe a snapshot whose encoded JSON matches its
// blob. Run with: go test -race ./internal/store/...
func TestSnapshotStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := NewSnapshotStore()
	if _, err := s.Publish(testBlob("gen0")); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "style.css")
	if err := os.WriteFile(path, []byte("body{}"), 0644); err != nil {
		t.Fatal(err)
	}

	var stop atomic.Bool
	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				snap := s.Current()
				var decoded blob.Blob
				if err := json.Unmarshal(snap.JSON(), &decoded); err != nil {
					failures.Add(1)
					continue
				}
				if decoded.Tabs[0].ID != snap.Blob().Tabs[0].ID {
					failures.Add(1)
				}
				if _, err := s.ReadFile(path); err != nil {
					failures.Add(1)
				}
			}
		}()
	}

	for i := 1; i <= 200; i++ {
		if _, err := s.Publish(testBlob(fmt.Sprintf("gen%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	stop.Store(true)
	wg.Wait()

	if n := failures.Load(); n > 0 {
		t.Errorf("%d reads observed an inconsistent snapshot", n)
	}
	if got := s.Current().Generation(); got != 201 {
		t.Errorf("Generation() = %d, want 201", got)
	}
}
