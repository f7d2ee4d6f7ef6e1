// Package refresher rebuilds and republishes the blob in the background.
//
// [Scheduler] runs one refresh cycle per interval on a fixed delay: the next
// wait starts only after the previous cycle finished, so cycles never overlap
// and a slow upstream pushes later cycles back. A cycle that fails for any
// reason, including a panic while building, is logged and leaves the
// previously published snapshot in place.
package refresher
