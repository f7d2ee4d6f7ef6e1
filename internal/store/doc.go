// Package store holds the published snapshot served by findwork.
//
// The main components are:
//
//   - [Snapshot]: a published blob, its encoded JSON and a static file cache
//   - [Store]: interface consumed by the HTTP server
//   - [SnapshotStore]: the reader/writer-locked implementation of Store
//
// Many request goroutines read the current snapshot concurrently. The refresh
// goroutine takes the write lock only to swap in a new snapshot, and request
// goroutines take it only to insert a file into the cache. A snapshot is
// replaced as a whole: its blob, encoded JSON and file cache always come from
// the same publish.
//
// Subscribers are notified of every publish via channels with non-blocking
// sends (slow subscribers miss notifications rather than block publishing).
package store
