// Package issues fetches the live issues behind each tab/category association.
//
// [Fetcher.Fetch] queries the tracker once per association, concurrently,
// and returns [Data]: issues keyed by (tab, category). Associations whose
// filtered result is empty contribute no key.
package issues
