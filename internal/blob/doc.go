// Package blob joins structural data with fetched issues into the served
// document.
//
// [Build] is a pure function: the same structural data and issue data always
// produce the same [Blob]. [ByTab] derives a view of a blob that carries the
// content of a single tab, for clients that load tabs lazily.
//
// A Blob is immutable once built. Views returned by [ByTab] share the
// selected tab's categories with the source blob.
package blob
