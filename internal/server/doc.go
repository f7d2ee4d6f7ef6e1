// Package server serves the published snapshot over HTTP.
//
// It handles all HTTP concerns of findwork:
//
//   - Blob: JSON at "/data", narrowed to one tab by "/data/<id>" or "?tab=<id>"
//   - Static files: "/static/<path>" below the configured root, cached per snapshot
//   - Server-Sent Events: one message per publish at "/events"
//   - Index: every other GET path serves the front-end's index document
//
// Requests with any method other than GET get 404. The server shuts down
// gracefully on context cancellation, with a 5-second timeout for in-flight
// requests.
package server
