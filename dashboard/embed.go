// Package dashboard embeds the fallback index page.
//
// The page is served for unrouted GET requests when no index_path is
// configured. It renders the blob from /data/ without any build step and
// reloads it when /events announces a new snapshot.
package dashboard

import "embed"

// Assets holds assets/index.html.
//
//go:embed assets/*
var Assets embed.FS
