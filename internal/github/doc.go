// Package github provides the upstream tracker client used by findwork.
//
// The main components are:
//
//   - [Client]: typed wrapper around the GitHub REST API
//   - [Issue]: an issue as fetched from the tracker and served in the blob
//   - [StatusError]: returned for non-success HTTP responses
//
// [Client] satisfies both the issue fetcher's tracker interface and the
// structural data source interface, so one client serves a refresh cycle.
package github
