// Package data provides the structural data that shapes the served blob.
//
// Structural data is three JSON documents kept next to each other:
//
//   - tabs.json: the ordered list of [Tab] values shown to users
//   - categories.json: the [Category] values, each backed by one repository
//   - tab-category.json: the [TabCategory] associations with their filters
//
// [Parse] validates the documents and indexes them into a [StructuralData].
// [Load] reads them through a [Source], either the configured GitHub
// repository or a local directory ([DirSource]) in dev mode.
package data
