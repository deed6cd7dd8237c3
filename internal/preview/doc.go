// Package preview checks emitted SQL and produces mocked result sets for
// the preview pane.
//
// No database is contacted. MockExecutor waits a configurable delay and
// returns a deterministic table seeded from the SQL text, so the same
// query always previews the same rows. Paginate slices a result set into
// pages with a bounded window of page numbers for navigation.
package preview
